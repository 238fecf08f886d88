package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the bot exports.
type Metrics struct {
	registry *prometheus.Registry

	Mentions             prometheus.Counter
	Replies              *prometheus.CounterVec
	IntentMatches        *prometheus.CounterVec
	Fallbacks            *prometheus.CounterVec
	DuplicatesSuppressed prometheus.Counter
	StoreLatency         *prometheus.HistogramVec
	Errors               *prometheus.CounterVec
}

// New registers the collectors on a fresh registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Mentions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mentions_total",
			Help:      "App mention events received.",
		}),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies posted, by category.",
		}, []string{"category"}),
		IntentMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_matches_total",
			Help:      "Messages matched by an intent rule.",
		}, []string{"intent"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Unmatched messages answered by the fallback matcher, by kind.",
		}, []string{"kind"}),
		DuplicatesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Replies not posted because an identical one was just sent to the thread.",
		}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Document store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component.",
		}, []string{"component"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
