package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Production emits JSON, everything else text.
func New(production bool, level string) *slog.Logger {
	return newWithWriter(os.Stdout, production, level)
}

func newWithWriter(w io.Writer, production bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "sassito")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
