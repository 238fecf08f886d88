package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

const schema = `
CREATE TABLE IF NOT EXISTS bot_messages (
	id UUID PRIMARY KEY,
	event_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	thread_ts TEXT,
	user_id TEXT,
	direction TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS bot_messages_channel_thread_idx ON bot_messages (channel, thread_ts);
`

const insertMessageSQL = `
INSERT INTO bot_messages (id, event_id, channel, thread_ts, user_id, direction, category, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// MessageRecord is one logged message, incoming mention or outgoing reply.
type MessageRecord struct {
	EventID   string
	Channel   string
	ThreadTS  string
	UserID    string
	Direction string
	Category  string
	Content   *string
	CreatedAt time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository writes the message log to Postgres.
type Repository struct {
	db     execer
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	r := newRepository(pool, logger)
	r.pool = pool
	return r, nil
}

func newRepository(db execer, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With("component", "repo"),
		now:    time.Now,
	}
}

// Close releases the pool.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// EnsureSchema creates the message log table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	r.logger.Debug("message log schema ready")
	return nil
}

// InsertMessage appends rec to the message log.
func (r *Repository) InsertMessage(ctx context.Context, rec MessageRecord) error {
	if rec.Direction == "" || rec.Channel == "" {
		return errors.New("message record requires direction and channel")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	_, err := r.db.Exec(ctx, insertMessageSQL,
		uuid.New(),
		rec.EventID,
		rec.Channel,
		optional(rec.ThreadTS),
		optional(rec.UserID),
		rec.Direction,
		rec.Category,
		rec.Content,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func optional(val string) *string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return &val
}
