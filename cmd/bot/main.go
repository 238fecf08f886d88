package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sassito/internal/cache"
	"sassito/internal/config"
	"sassito/internal/convo"
	"sassito/internal/dedup"
	"sassito/internal/handlers"
	"sassito/internal/intent"
	"sassito/internal/logging"
	"sassito/internal/metrics"
	"sassito/internal/repo"
	"sassito/internal/slackbot"
	"sassito/internal/store"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed loading .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Production(), cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New(cfg.MetricsNamespace)

	st, err := store.Connect(ctx, store.Config{
		URI:                 cfg.MongoURI,
		Username:            cfg.MongoUser,
		Password:            cfg.MongoPassword,
		Database:            cfg.MongoDatabase,
		LocationsCollection: cfg.MongoLocationsCollection,
		OrdersDatabase:      cfg.MongoOrdersDatabase,
		OrdersCollection:    cfg.MongoOrdersCollection,
		Timeout:             cfg.StoreTimeout,
	}, m, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("failed closing document store", "error", err)
		}
	}()

	suppressor, closeSuppressor, err := newSuppressor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSuppressor()

	opts := convo.Options{DisplayName: cfg.BotDisplayName, LogTimeout: cfg.LogTimeout}
	if cfg.DatabaseURL != "" {
		messages, err := repo.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer messages.Close()
		if err := messages.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Log = messages
	}

	dispatcher, err := intent.NewDispatcher(
		intent.DefaultRules(st, logger),
		intent.NewFallback(cfg.FuzzyThreshold, m),
		intent.Config{Timeout: cfg.StoreTimeout},
		m, logger,
	)
	if err != nil {
		return err
	}

	api := slackbot.NewClient(slackbot.ClientConfig{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
		Debug:    cfg.SlackDebug,
	}, logger)
	gateway := slackbot.NewGateway(api, cfg.SlackTimeout, logger)
	engine := convo.New(dispatcher, gateway, suppressor, opts, m, logger)
	listener := slackbot.NewListener(api, engine, gateway, cfg.SlackDebug, m, logger)

	server := handlers.NewServer(cfg.HTTPListenAddr, handlers.NewRouter(gateway, m, handlers.Options{}, logger), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("bot started", "intents", len(dispatcher.Labels()), "http_addr", cfg.HTTPListenAddr)
	return g.Wait()
}

func newSuppressor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dedup.Suppressor, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory reply deduplication", "window", cfg.DedupWindow)
		return dedup.NewMemory(cfg.DedupCapacity, cfg.DedupWindow), func() {}, nil
	}
	rdb, err := cache.NewRedis(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis reply deduplication", "window", cfg.DedupWindow)
	return dedup.NewRedis(rdb.Client(), cfg.DedupWindow, logger), func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}, nil
}
