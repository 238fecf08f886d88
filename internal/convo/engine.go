package convo

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"sassito/internal/dedup"
	"sassito/internal/intent"
	"sassito/internal/metrics"
	"sassito/internal/repo"

	"github.com/google/uuid"
)

const defaultLogTimeout = 5 * time.Second

// Reply categories, used for metrics and the message log.
const (
	CategoryGreeting = "greeting"
	CategoryIntent   = "intent"
	CategoryFallback = "fallback"
)

var (
	userMentionRe = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)
	greetingRe    = regexp.MustCompile(`(?i)\b(?:hi|hello|hola|hey)\b`)
	assistantRe   = regexp.MustCompile(`\bAssistant\b`)
)

// SlackGateway posts replies and reactions.
type SlackGateway interface {
	PostReply(ctx context.Context, channel, threadTS, text string) (string, error)
	AddReaction(ctx context.Context, channel, ts, name string) error
}

// Router matches cleaned text to an intent and produces the reply.
type Router interface {
	Match(text string) (intent.Rule, string, bool)
	Dispatch(ctx context.Context, text string) string
}

// MessageLog persists incoming and outgoing messages.
type MessageLog interface {
	InsertMessage(ctx context.Context, rec repo.MessageRecord) error
}

// Mention is one app_mention event.
type Mention struct {
	SenderID string
	Text     string
	Channel  string
	ThreadTS string
	TS       string
}

// thread is where replies go: the existing thread, or a new one under the
// mention itself.
func (m Mention) thread() string {
	if m.ThreadTS != "" {
		return m.ThreadTS
	}
	return m.TS
}

// Options configures an Engine.
type Options struct {
	// DisplayName replaces the word "Assistant" in replies.
	DisplayName string
	// Log is optional.
	Log MessageLog
	// LogTimeout bounds each message log write. Defaults to 5s.
	LogTimeout time.Duration
}

// Engine turns mentions into threaded replies.
type Engine struct {
	router      Router
	gateway     SlackGateway
	suppressor  dedup.Suppressor
	log         MessageLog
	logTimeout  time.Duration
	displayName string
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a conversation engine instance.
func New(router Router, gateway SlackGateway, suppressor dedup.Suppressor, opts Options, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if opts.LogTimeout <= 0 {
		opts.LogTimeout = defaultLogTimeout
	}
	return &Engine{
		router:      router,
		gateway:     gateway,
		suppressor:  suppressor,
		log:         opts.Log,
		logTimeout:  opts.LogTimeout,
		displayName: opts.DisplayName,
		metrics:     m,
		logger:      logger.With("component", "convo"),
		now:         time.Now,
	}
}

// HandleMention answers one mention in its thread. Only a failed post is
// reported; everything else degrades to a reply.
func (e *Engine) HandleMention(ctx context.Context, m Mention) error {
	eventID := uuid.NewString()
	logger := e.logger.With("event_id", eventID, "channel", m.Channel, "user", m.SenderID)
	e.metrics.Mentions.Inc()
	logger.Info("mention received", "text", m.Text)

	e.record(ctx, logger, repo.MessageRecord{
		EventID:   eventID,
		Channel:   m.Channel,
		ThreadTS:  m.thread(),
		UserID:    m.SenderID,
		Direction: repo.DirectionIncoming,
		Category:  "mention",
		Content:   optionalString(m.Text),
	})

	if m.TS != "" {
		if err := e.gateway.AddReaction(ctx, m.Channel, m.TS, "wave"); err != nil {
			logger.Warn("failed adding reaction", "error", err)
		}
	}

	text := CleanText(m.Text)
	reply, category := e.compose(ctx, m.SenderID, text)
	if e.displayName != "" {
		reply = assistantRe.ReplaceAllLiteralString(reply, e.displayName)
	}

	thread := m.thread()
	if e.suppressor != nil && e.suppressor.ShouldSuppress(ctx, m.Channel, thread, reply, e.now()) {
		e.metrics.DuplicatesSuppressed.Inc()
		logger.Info("duplicate reply suppressed", "thread", thread)
		return nil
	}

	return e.respondAndLog(ctx, logger, eventID, m, reply, category)
}

func (e *Engine) compose(ctx context.Context, senderID, text string) (string, string) {
	if _, _, ok := e.router.Match(text); ok {
		return e.router.Dispatch(ctx, text), CategoryIntent
	}
	if greetingRe.MatchString(text) {
		return fmt.Sprintf("<@%s> How can I assist you?", senderID), CategoryGreeting
	}
	return e.router.Dispatch(ctx, text), CategoryFallback
}

func (e *Engine) respondAndLog(ctx context.Context, logger *slog.Logger, eventID string, m Mention, text, category string) error {
	ts, err := e.gateway.PostReply(ctx, m.Channel, m.thread(), text)
	if err != nil {
		e.metrics.Errors.WithLabelValues("slack_post").Inc()
		logger.Error("failed posting reply", "error", err, "category", category)
		return fmt.Errorf("post reply: %w", err)
	}
	e.metrics.Replies.WithLabelValues(category).Inc()
	logger.Info("reply posted", "category", category, "ts", ts)

	e.record(ctx, logger, repo.MessageRecord{
		EventID:   eventID,
		Channel:   m.Channel,
		ThreadTS:  m.thread(),
		Direction: repo.DirectionOutgoing,
		Category:  category,
		Content:   &text,
	})
	return nil
}

func (e *Engine) record(ctx context.Context, logger *slog.Logger, rec repo.MessageRecord) {
	if e.log == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.logTimeout)
	defer cancel()
	if err := e.log.InsertMessage(ctx, rec); err != nil {
		logger.Warn("failed logging message", "error", err, "direction", rec.Direction)
	}
}

// CleanText removes user mention tokens and decodes Slack's HTML escaping.
func CleanText(text string) string {
	text = userMentionRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

func optionalString(val string) *string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	ptr := val
	return &ptr
}
