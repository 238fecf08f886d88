package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPListenAddr string

	SlackBotToken  string
	SlackAppToken  string
	SlackTimeout   time.Duration
	SlackDebug     bool
	BotDisplayName string

	MongoURI                 string
	MongoUser                string
	MongoPassword            string
	MongoDatabase            string
	MongoLocationsCollection string
	MongoOrdersDatabase      string
	MongoOrdersCollection    string
	StoreTimeout             time.Duration

	DedupWindow    time.Duration
	DedupCapacity  int
	FuzzyThreshold int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	DatabaseURL      string
	LogTimeout       time.Duration
	MetricsNamespace string
}

// Load returns configuration populated from environment variables with fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:                   getenvDefault("APP_ENV", "development"),
		LogLevel:                 getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:           getenvDefault("HTTP_LISTEN_ADDR", ":3000"),
		SlackBotToken:            trimmedEnv("SLACK_BOT_TOKEN"),
		SlackAppToken:            trimmedEnv("SLACK_APP_TOKEN"),
		BotDisplayName:           getenvDefault("BOT_DISPLAY_NAME", "Tier-2 Slack Bot"),
		MongoURI:                 trimmedEnv("MONGO_CONN_STRING"),
		MongoUser:                trimmedEnv("MONGO_USER"),
		MongoPassword:            trimmedEnv("MONGO_PASS"),
		MongoDatabase:            getenvDefault("MONGO_DATABASE", "Configuration_db"),
		MongoLocationsCollection: getenvDefault("MONGO_LOCATIONS_COLLECTION", "Locations"),
		MongoOrdersDatabase:      getenvDefault("MONGO_ORDERS_DATABASE", "Users"),
		MongoOrdersCollection:    getenvDefault("MONGO_ORDERS_COLLECTION", "UsersOrders"),
		RedisAddr:                trimmedEnv("REDIS_ADDR"),
		RedisPassword:            trimmedEnv("REDIS_PASSWORD"),
		DatabaseURL:              trimmedEnv("DATABASE_URL"),
		MetricsNamespace:         getenvDefault("METRICS_NAMESPACE", "sassito"),
	}

	var err error
	if cfg.SlackTimeout, err = parseDuration("SLACK_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = parseDuration("STORE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.DedupWindow, err = parseDuration("DEDUP_WINDOW", "10s"); err != nil {
		return nil, err
	}
	if cfg.LogTimeout, err = parseDuration("LOG_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	if cfg.DedupCapacity, err = parseInt("DEDUP_CAPACITY", "10000"); err != nil {
		return nil, err
	}
	if cfg.DedupCapacity <= 0 {
		return nil, fmt.Errorf("DEDUP_CAPACITY must be positive")
	}

	if cfg.FuzzyThreshold, err = parseInt("FUZZY_THRESHOLD", "70"); err != nil {
		return nil, err
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 100 {
		return nil, fmt.Errorf("FUZZY_THRESHOLD must be between 0 and 100")
	}

	if cfg.RedisDB, err = parseInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	cfg.RedisTLS = strings.EqualFold(getenvDefault("REDIS_TLS", "false"), "true")
	cfg.SlackDebug = strings.EqualFold(getenvDefault("SLACK_DEBUG", "false"), "true")

	if cfg.SlackBotToken == "" || cfg.SlackAppToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN are required")
	}
	if !strings.HasPrefix(cfg.SlackAppToken, "xapp-") {
		return nil, fmt.Errorf("SLACK_APP_TOKEN must be an app-level token (xapp-)")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_CONN_STRING is required")
	}

	return cfg, nil
}

// Production reports whether the process runs with APP_ENV=production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getenvDefault(key, fallback)
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("invalid %s duration: must be positive", key)
	}
	return dur, nil
}

func parseInt(key, fallback string) (int, error) {
	val, err := strconv.Atoi(getenvDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return val, nil
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func trimmedEnv(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
