package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the relay's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "chatrelay").
	Namespace string

	// Subsystem is the metrics subsystem (default: "relay").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// MetricsOption configures the relay metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// Metrics holds the collectors updated by the handler and broadcaster.
type Metrics struct {
	connections prometheus.Gauge
	sessions    prometheus.Gauge
	historySize prometheus.Gauge
	events      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	messages    prometheus.Counter
	evictions   prometheus.Counter
}

// NewMetrics creates the relay collectors and registers them with reg. A nil
// registerer yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{Namespace: "chatrelay", Subsystem: "relay"}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(reg)

	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "connections",
			Help:        "Number of live connections",
			ConstLabels: cfg.ConstLabels,
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "sessions",
			Help:        "Number of joined sessions",
			ConstLabels: cfg.ConstLabels,
		}),
		historySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "history_messages",
			Help:        "Number of messages retained in the history buffer",
			ConstLabels: cfg.ConstLabels,
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_total",
			Help:        "Total number of inbound events processed",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_dropped_total",
			Help:        "Total number of inbound events ignored",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event", "reason"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total number of outbound frames queued to connections",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event"}),
		messages: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "messages_total",
			Help:        "Total number of chat messages accepted",
			ConstLabels: cfg.ConstLabels,
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "evictions_total",
			Help:        "Total number of connections dropped because they could not keep up",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}
