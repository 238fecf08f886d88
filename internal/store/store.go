package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"sassito/internal/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// ErrNotFound is returned when no document matches the lookup key.
var ErrNotFound = errors.New("record not found")

// collection is the subset of *mongo.Collection the store relies on.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Config holds connection settings for the document store.
type Config struct {
	URI                 string
	Username            string
	Password            string
	Database            string
	LocationsCollection string
	OrdersDatabase      string
	OrdersCollection    string
	Timeout             time.Duration
}

// Store provides typed access to restaurant configuration and order data.
type Store struct {
	client    *mongo.Client
	locations collection
	orders    collection
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.Timeout))
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	locations := client.Database(cfg.Database).Collection(cfg.LocationsCollection)
	orders := client.Database(cfg.OrdersDatabase).Collection(cfg.OrdersCollection)

	s := newStore(locations, orders, cfg.Timeout, m, logger)
	s.client = client
	s.logger.Info("connected to document store", "database", cfg.Database, "orders_database", cfg.OrdersDatabase)
	return s, nil
}

func newStore(locations, orders collection, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		locations: locations,
		orders:    orders,
		timeout:   timeoutOrDefault(timeout),
		metrics:   m,
		logger:    logger.With("component", "store"),
		now:       time.Now,
	}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// FindByFullName returns the location whose FullName equals name exactly
// (case-sensitive).
func (s *Store) FindByFullName(ctx context.Context, name string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var raw bson.M
	err := s.locations.FindOne(ctx, bson.M{"FullName": name}).Decode(&raw)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		s.observe("find_by_full_name", "not_found", start)
		return nil, ErrNotFound
	case err != nil:
		s.observe("find_by_full_name", "error", start)
		return nil, fmt.Errorf("find location %q: %w", name, err)
	}
	s.observe("find_by_full_name", "ok", start)

	rec, _ := normalize(raw).(Record)
	return rec, nil
}

// CouponUsageCount counts orders paid with code. The code is lower-cased
// and matched exactly, ignoring case.
func (s *Store) CouponUsageCount(ctx context.Context, code string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	normalized := strings.ToLower(strings.TrimSpace(code))
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "Payment.CouponCode", Value: bson.D{
			{Key: "$regex", Value: "^" + regexp.QuoteMeta(normalized) + "$"},
			{Key: "$options", Value: "i"},
		}}}}},
		{{Key: "$count", Value: "coupon_usage_count"}},
	}

	start := time.Now()
	cur, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		s.observe("coupon_usage_count", "error", start)
		return 0, fmt.Errorf("aggregate coupon %q: %w", normalized, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Count int64 `bson:"coupon_usage_count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		s.observe("coupon_usage_count", "error", start)
		return 0, fmt.Errorf("decode coupon count %q: %w", normalized, err)
	}
	s.observe("coupon_usage_count", "ok", start)

	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// Closure describes a manual closure request.
type Closure struct {
	Reason string
	Until  *time.Time
}

// CloseManually marks the location as manually closed. It returns
// ErrNotFound when no location has that FullName.
func (s *Store) CloseManually(ctx context.Context, name string, closure Closure) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reason any
	if closure.Reason != "" {
		reason = closure.Reason
	}
	var until any
	if closure.Until != nil {
		until = closure.Until.UTC()
	}

	update := bson.M{"$set": bson.M{
		"ClosedManually":          true,
		"ClosedManuallyTime":      s.now().UTC(),
		"ClosedManuallyReason":    reason,
		"ClosedManuallyUntilTime": until,
	}}

	start := time.Now()
	res, err := s.locations.UpdateOne(ctx, bson.M{"FullName": name}, update)
	if err != nil {
		s.observe("close_manually", "error", start)
		return fmt.Errorf("close location %q: %w", name, err)
	}
	if res.MatchedCount == 0 {
		s.observe("close_manually", "not_found", start)
		return ErrNotFound
	}
	s.observe("close_manually", "ok", start)
	return nil
}

func (s *Store) observe(operation, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreLatency.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	if status == "error" {
		s.metrics.Errors.WithLabelValues("store").Inc()
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
