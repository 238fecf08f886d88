package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sassito:dedup:"

// Redis shares suppression state between bot replicas. The previous entry is
// swapped out atomically with SET ... GET, and keys expire after the window.
type Redis struct {
	client redis.UniversalClient
	window time.Duration
	logger *slog.Logger
}

// NewRedis builds a Redis-backed Suppressor.
func NewRedis(client redis.UniversalClient, window time.Duration, logger *slog.Logger) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{
		client: client,
		window: window,
		logger: logger.With("component", "dedup"),
	}
}

// ShouldSuppress applies the same policy as Memory. Redis failures fail open:
// the reply is sent and a warning is logged.
func (r *Redis) ShouldSuppress(ctx context.Context, channel, thread, text string, now time.Time) bool {
	key := keyPrefix + channel + ":" + thread
	prevRaw, err := r.client.SetArgs(ctx, key, encodeEntry(text, now), redis.SetArgs{
		TTL: r.window,
		Get: true,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		r.logger.Warn("dedup lookup failed", "error", err, "channel", channel, "thread", thread)
		return false
	}

	prev, err := decodeEntry(prevRaw)
	if err != nil {
		r.logger.Warn("dedup entry unreadable", "error", err, "key", key)
		return false
	}
	return isDuplicate(prev, text, now, r.window)
}

func encodeEntry(text string, at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10) + "|" + text
}

func decodeEntry(raw string) (entry, error) {
	stamp, text, ok := strings.Cut(raw, "|")
	if !ok {
		return entry{}, fmt.Errorf("missing separator")
	}
	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return entry{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return entry{text: text, at: time.Unix(0, nanos)}, nil
}
