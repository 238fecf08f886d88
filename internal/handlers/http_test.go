package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sassito/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePoster struct {
	channel, text string
	err           error
}

func (p *fakePoster) PostMessage(_ context.Context, channel, text string) (string, error) {
	p.channel, p.text = channel, text
	if p.err != nil {
		return "", p.err
	}
	return "1700000000.000300", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(p Poster, opts Options) http.Handler {
	return NewRouter(p, metrics.New("handlers_test"), opts, discardLogger())
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthz(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakePoster{}, Options{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := do(t, newTestRouter(&fakePoster{}, Options{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "handlers_test_mentions_total")
}

func TestSendMessage(t *testing.T) {
	p := &fakePoster{}
	rec, body := do(t, newTestRouter(p, Options{}), http.MethodPost, "/send_message", `{"channel_id":"C1","text":"ping"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Message sent", body["status"])
	assert.Equal(t, "C1", body["channel"])
	assert.Equal(t, "1700000000.000300", body["ts"])
	assert.Equal(t, "ping", p.text)
}

func TestSendMessageDefaultText(t *testing.T) {
	p := &fakePoster{}
	rec, _ := do(t, newTestRouter(p, Options{}), http.MethodPost, "/send_message", `{"channel_id":"C1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultTestMessage, p.text)
}

func TestSendMessageBadRequests(t *testing.T) {
	h := newTestRouter(&fakePoster{}, Options{SendLimit: 100})

	rec, body := do(t, h, http.MethodPost, "/send_message", `{"text":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "channel_id is required", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/send_message", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageSlackError(t *testing.T) {
	p := &fakePoster{err: errors.New("not_in_channel")}
	rec, body := do(t, newTestRouter(p, Options{}), http.MethodPost, "/send_message", `{"channel_id":"C1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "not_in_channel")
}

func TestSendMessageRateLimited(t *testing.T) {
	h := newTestRouter(&fakePoster{}, Options{SendLimit: 2, SendWindow: time.Minute})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodPost, "/send_message", `{"channel_id":"C1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := do(t, h, http.MethodPost, "/send_message", `{"channel_id":"C1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestServerShutdownLeavesNoGoroutines(t *testing.T) {
	h := newTestRouter(&fakePoster{}, Options{})
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(ln.Addr().String(), h, discardLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", ln.Addr().String()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-errCh)
	client.CloseIdleConnections()
}
