// Package slackbot connects the conversation engine to Slack over Socket Mode.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
)

const defaultTimeout = 10 * time.Second

// ClientConfig holds Slack credentials.
type ClientConfig struct {
	BotToken string
	AppToken string
	Debug    bool
	// APIURL overrides the Web API base URL; it must end with a slash.
	APIURL string
}

// NewClient builds a Web API client that can also open a Socket Mode
// connection.
func NewClient(cfg ClientConfig, logger *slog.Logger) *slack.Client {
	opts := []slack.Option{
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionDebug(cfg.Debug),
		slack.OptionLog(slog.NewLogLogger(logger.With("component", "slack_api").Handler(), slog.LevelDebug)),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return slack.New(cfg.BotToken, opts...)
}

// Gateway sends messages and reactions through the Web API.
type Gateway struct {
	api     *slack.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway wraps api. Every call is bounded by timeout.
func NewGateway(api *slack.Client, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		api:     api,
		timeout: timeout,
		logger:  logger.With("component", "slack_gateway"),
	}
}

// PostReply posts text into the thread rooted at threadTS and returns the
// new message timestamp.
func (g *Gateway) PostReply(ctx context.Context, channel, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	return g.post(ctx, channel, opts...)
}

// PostMessage posts text at the top level of channel.
func (g *Gateway) PostMessage(ctx context.Context, channel, text string) (string, error) {
	return g.post(ctx, channel, slack.MsgOptionText(text, false))
}

func (g *Gateway) post(ctx context.Context, channel string, opts ...slack.MsgOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, ts, err := g.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", fmt.Errorf("post message to %s: %w", channel, err)
	}
	g.logger.Debug("message posted", "channel", channel, "ts", ts)
	return ts, nil
}

// AddReaction reacts to the message at ts with the named emoji.
func (g *Gateway) AddReaction(ctx context.Context, channel, ts, name string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, ts)); err != nil {
		return fmt.Errorf("add reaction %s: %w", name, err)
	}
	return nil
}

// SetPresence sets the bot user's presence, "auto" or "away".
func (g *Gateway) SetPresence(ctx context.Context, presence string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.api.SetUserPresenceContext(ctx, presence); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}
