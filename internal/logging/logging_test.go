package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestProductionLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, true, "info")

	logger.Debug("hidden")
	logger.Info("mention received", "channel", "C1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mention received", line["msg"])
	assert.Equal(t, "C1", line["channel"])
	assert.Equal(t, "sassito", line["app"])
}

func TestDevelopmentLoggerEmitsText(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, false, "debug")

	logger.Debug("dispatching", "intent", "opening hours")

	assert.Contains(t, buf.String(), `msg=dispatching`)
	assert.Contains(t, buf.String(), `intent="opening hours"`)
}
