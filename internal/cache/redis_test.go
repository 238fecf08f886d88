package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), Config{Addr: mr.Addr()}, discardLogger())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), Config{Addr: addr}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
