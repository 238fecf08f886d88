package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func newTestRepository(db *fakeExecer) *Repository {
	r := newRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600)) }
	return r
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, newTestRepository(db).EnsureSchema(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS bot_messages")
}

func TestInsertMessage(t *testing.T) {
	db := &fakeExecer{}
	content := "hello"

	err := newTestRepository(db).InsertMessage(context.Background(), MessageRecord{
		EventID:   "evt-1",
		Channel:   "C1",
		UserID:    "U1",
		Direction: DirectionIncoming,
		Category:  "mention",
		Content:   &content,
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)

	args := db.calls[0].args
	require.Len(t, args, 9)
	_, isUUID := args[0].(uuid.UUID)
	assert.True(t, isUUID)
	assert.Equal(t, "evt-1", args[1])
	assert.Equal(t, "C1", args[2])
	assert.Nil(t, args[3].(*string))
	assert.Equal(t, "U1", *args[4].(*string))
	assert.Equal(t, DirectionIncoming, args[5])
	assert.Equal(t, &content, args[7])
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), args[8])
}

func TestInsertMessageValidation(t *testing.T) {
	db := &fakeExecer{}
	err := newTestRepository(db).InsertMessage(context.Background(), MessageRecord{Channel: "C1"})
	assert.Error(t, err)
	assert.Empty(t, db.calls)
}

func TestInsertMessageWrapsError(t *testing.T) {
	boom := errors.New("boom")
	db := &fakeExecer{err: boom}
	err := newTestRepository(db).InsertMessage(context.Background(), MessageRecord{Channel: "C1", Direction: DirectionOutgoing})
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsEmptyURL(t *testing.T) {
	_, err := New(context.Background(), " ", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
