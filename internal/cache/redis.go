package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// Redis wraps a connected go-redis client.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects and pings Redis.
func NewRedis(ctx context.Context, cfg Config, logger *slog.Logger) (*Redis, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger = logger.With("component", "redis")
	logger.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB, "tls", cfg.TLS)
	return &Redis{client: client, logger: logger}, nil
}

// Client exposes the underlying client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
