package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sassito/internal/metrics"
	"sassito/internal/store"
)

const defaultTimeout = 10 * time.Second

// Config holds dispatcher settings.
type Config struct {
	// Timeout bounds each resolver call.
	Timeout time.Duration
}

// Dispatcher routes free text to the first matching rule and falls back to
// fuzzy suggestions when nothing matches.
type Dispatcher struct {
	rules    []Rule
	labels   []string
	fallback *Fallback
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher validates the rule table. Order is preserved: the first
// matching rule wins.
func NewDispatcher(rules []Rule, fallback *Fallback, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Dispatcher, error) {
	seen := make(map[string]struct{}, len(rules))
	labels := make([]string, 0, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, r.Label)
		}
		seen[r.Label] = struct{}{}
		labels = append(labels, r.Label)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		rules:    append([]Rule(nil), rules...),
		labels:   labels,
		fallback: fallback,
		timeout:  timeout,
		metrics:  m,
		logger:   logger.With("component", "dispatcher"),
	}, nil
}

// Labels returns the rule labels in dispatch order.
func (d *Dispatcher) Labels() []string {
	return append([]string(nil), d.labels...)
}

// Match returns the first rule whose pattern occurs in text and its trimmed
// parameter.
func (d *Dispatcher) Match(text string) (Rule, string, bool) {
	for _, r := range d.rules {
		if param, ok := r.match(text); ok {
			return r, param, true
		}
	}
	return Rule{}, "", false
}

// Dispatch always returns a reply. Collaborator failures become apologies
// and unmatched text goes to the fallback matcher.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) string {
	rule, param, ok := d.Match(text)
	if !ok {
		d.logger.Debug("no intent matched", "text", text)
		return d.fallback.Respond(text, d.labels)
	}

	d.metrics.IntentMatches.WithLabelValues(rule.Label).Inc()
	d.logger.Debug("intent matched", "intent", rule.Label, "param", param)

	reply, err := d.resolve(ctx, rule, param)
	switch {
	case errors.Is(err, store.ErrNotFound):
		d.logger.Info("lookup key not found", "intent", rule.Label, "key", param)
		return notFoundReply(param)
	case err != nil:
		d.metrics.Errors.WithLabelValues("dispatcher").Inc()
		d.logger.Error("intent resolution failed", "intent", rule.Label, "key", param, "error", err)
		return failureReply(rule.Label)
	}
	return reply
}

func (d *Dispatcher) resolve(ctx context.Context, rule Rule, param string) (reply string, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resolver panic: %v", rec)
		}
	}()
	return rule.Resolver.Resolve(ctx, param)
}

func notFoundReply(name string) string {
	return fmt.Sprintf("Restaurant '%s' not found. Please make sure you are writing the full name of the restaurant.", name)
}

func failureReply(label string) string {
	return fmt.Sprintf("An internal error occurred while processing your %s request. Please try again later. 🙁", label)
}
