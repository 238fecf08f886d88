package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"sassito/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// DefaultTestMessage is posted by /send_message when no text is given.
const DefaultTestMessage = "Hello, this is a test message from the bot!"

// Poster sends a top-level message to a Slack channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) (string, error)
}

// Options configures the ops router.
type Options struct {
	// SendLimit is the number of /send_message calls allowed per IP per
	// SendWindow.
	SendLimit  int
	SendWindow time.Duration
}

type sendMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// NewRouter exposes health, metrics and the manual send endpoint.
func NewRouter(poster Poster, m *metrics.Metrics, opts Options, logger *slog.Logger) http.Handler {
	if opts.SendLimit <= 0 {
		opts.SendLimit = 10
	}
	if opts.SendWindow <= 0 {
		opts.SendWindow = time.Minute
	}
	logger = logger.With("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.With(httprate.Limit(
		opts.SendLimit,
		opts.SendWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(opts.SendWindow.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate_limit_exceeded"})
		}),
	)).Post("/send_message", sendMessage(poster, m, logger))

	return r
}

func sendMessage(poster Poster, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}
		req.ChannelID = strings.TrimSpace(req.ChannelID)
		if req.ChannelID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "channel_id is required"})
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			req.Text = DefaultTestMessage
		}

		ts, err := poster.PostMessage(r.Context(), req.ChannelID, req.Text)
		if err != nil {
			m.Errors.WithLabelValues("send_message").Inc()
			logger.Error("send_message failed", "error", err, "channel", req.ChannelID)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		logger.Info("send_message posted", "channel", req.ChannelID, "ts", ts)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "Message sent",
			"channel": req.ChannelID,
			"ts":      ts,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Server runs the ops router.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer binds handler to addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "http"),
	}
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
