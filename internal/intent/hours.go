package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const minutesPerDay = 24 * 60

var weekdays = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// OpeningHours renders the weekly opening slots. Slot i belongs to weekday
// i mod 7; a slot crossing midnight keeps its starting weekday label.
type OpeningHours struct {
	Repo   Repository
	Logger *slog.Logger
}

func (r OpeningHours) Resolve(ctx context.Context, name string) (string, error) {
	rec, err := r.Repo.FindByFullName(ctx, name)
	if err != nil {
		return "", err
	}
	slots := rec.Docs("OpeningHours")
	if len(slots) == 0 {
		return fmt.Sprintf("It seems we don't have opening hours available for '%s'. Let me know if there's anything else I can assist with!", name), nil
	}

	lines := make([]string, 0, len(slots))
	for i, slot := range slots {
		day := weekdays[i%len(weekdays)]
		start, okStart := slot.Int("Start")
		duration, okDuration := slot.Int("Duration")
		if !okStart || !okDuration {
			r.logger().Warn("skipping malformed opening-hours slot", "restaurant", name, "day", day, "slot", map[string]any(slot))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s - %s", day, clock(start), clock(start+duration)))
	}
	if len(lines) == 0 {
		return fmt.Sprintf("It seems we couldn't process the opening hours for '%s'. Let me know if you'd like me to check again!", name), nil
	}
	return fmt.Sprintf("Here are the opening hours for *%s* 😊 : \n%s\nLet me know if you need anything else or have any questions!",
		name, strings.Join(lines, "\n")), nil
}

func (r OpeningHours) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// clock formats minutes since midnight as HH:MM, wrapping past midnight.
func clock(minutes int) string {
	m := ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
