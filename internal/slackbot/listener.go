package slackbot

import (
	"context"
	"errors"
	"log/slog"

	"sassito/internal/convo"
	"sassito/internal/metrics"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"
)

// MentionHandler answers app mentions.
type MentionHandler interface {
	HandleMention(ctx context.Context, m convo.Mention) error
}

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

type presenceSetter interface {
	SetPresence(ctx context.Context, presence string) error
}

// Listener receives Socket Mode events and feeds mentions to the handler
// one at a time.
type Listener struct {
	client   *socketmode.Client
	acker    acker
	events   <-chan socketmode.Event
	handler  MentionHandler
	presence presenceSetter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewListener opens a Socket Mode client on api. presence may be nil.
func NewListener(api *slack.Client, handler MentionHandler, presence presenceSetter, debug bool, m *metrics.Metrics, logger *slog.Logger) *Listener {
	logger = logger.With("component", "slack_listener")
	client := socketmode.New(api,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
	)
	return &Listener{
		client:   client,
		acker:    client,
		events:   client.Events,
		handler:  handler,
		presence: presence,
		metrics:  m,
		logger:   logger,
	}
}

// Run connects and processes events until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if l.presence != nil {
		if err := l.presence.SetPresence(ctx, "auto"); err != nil {
			l.logger.Warn("failed setting presence", "error", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := l.client.RunContext(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		l.loop(ctx)
		return nil
	})
	return g.Wait()
}

func (l *Listener) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.events:
			if !ok {
				return
			}
			l.handleEvent(ctx, evt)
		}
	}
}

func (l *Listener) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		l.logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		l.metrics.Errors.WithLabelValues("slack_connection").Inc()
		l.logger.Warn("slack connection failed, retrying")
	case socketmode.EventTypeDisconnect:
		l.logger.Warn("disconnected from slack")
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			l.acker.Ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			l.logger.Warn("unexpected events api payload", "data", evt.Data)
			return
		}
		l.handleEventsAPI(ctx, apiEvent)
	case socketmode.EventTypeInteractive, socketmode.EventTypeSlashCommand:
		if evt.Request != nil {
			l.acker.Ack(*evt.Request)
		}
		l.logger.Debug("ignoring unsupported envelope", "type", evt.Type)
	default:
		l.logger.Debug("ignoring socket mode event", "type", evt.Type)
	}
}

func (l *Listener) handleEventsAPI(ctx context.Context, evt slackevents.EventsAPIEvent) {
	if evt.Type != slackevents.CallbackEvent {
		l.logger.Debug("ignoring events api envelope", "type", evt.Type)
		return
	}
	mention, ok := evt.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		l.logger.Debug("ignoring inner event", "type", evt.InnerEvent.Type)
		return
	}
	if err := l.handler.HandleMention(ctx, convo.Mention{
		SenderID: mention.User,
		Text:     mention.Text,
		Channel:  mention.Channel,
		ThreadTS: mention.ThreadTimeStamp,
		TS:       mention.TimeStamp,
	}); err != nil {
		l.logger.Error("mention handling failed", "error", err, "channel", mention.Channel)
	}
}
