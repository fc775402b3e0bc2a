package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "atomkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Next is an optional downstream scheduler notifications are
	// forwarded to after counting. Nil delivers directly.
	Next atomkit.Scheduler
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithNextScheduler chains a downstream scheduler behind the counter.
func WithNextScheduler(next atomkit.Scheduler) MetricsOption {
	return func(c *MetricsConfig) {
		c.Next = next
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "atomkit",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics exports engine activity as Prometheus metrics. It implements
// both atomkit.Observer and atomkit.Scheduler; install it with
// atomkit.SetObserver and atomkit.SetScheduler, or via Install.
type Metrics struct {
	cellsCreated  *prometheus.CounterVec
	notifications prometheus.Counter
	poolEvents    *prometheus.CounterVec
	next          atomkit.Scheduler
}

// NewMetrics registers the engine metrics and returns the collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		next: config.Next,
		cellsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells_created_total",
			Help:        "Total number of reactive cells created, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener notifications delivered",
			ConstLabels: config.ConstLabels,
		}),

		poolEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pool_events_total",
			Help:        "Total number of pool entry lifecycle events, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// CellCreated implements atomkit.Observer.
func (m *Metrics) CellCreated(info atomkit.CellInfo) {
	m.cellsCreated.WithLabelValues(string(info.Kind)).Inc()
}

// Schedule implements atomkit.Scheduler: every delivered notification
// is counted, then forwarded to the downstream scheduler or delivered
// directly.
func (m *Metrics) Schedule(listenerID uint64, notify func()) {
	m.notifications.Inc()
	if m.next != nil {
		m.next.Schedule(listenerID, notify)
		return
	}
	notify()
}

// Install wires the collector into the process-wide hooks and returns
// a function restoring the previous ones.
func (m *Metrics) Install() (restore func()) {
	prevObs := atomkit.SetObserver(m)
	prevSched := atomkit.SetScheduler(m)
	return func() {
		atomkit.SetObserver(prevObs)
		atomkit.SetScheduler(prevSched)
	}
}

// ObservePool counts p's entry lifecycle events. The returned function
// unsubscribes.
func ObservePool[K, V any](m *Metrics, p *atomkit.Pool[K, V]) func() {
	return p.On(func(ev atomkit.PoolEvent[K, V]) {
		m.poolEvents.WithLabelValues(ev.Kind.String()).Inc()
	})
}
