// Package metrics exports runtime activity as Prometheus metrics.
//
// Metrics collected:
//   - reactor_events_total: Counter of events by kind and status
//   - reactor_event_duration_seconds: Histogram of event duration by kind
//   - reactor_failures_total: Counter of failed events by kind and error type
//
// Example:
//
//	reactor.Configure(reactor.WithObserver(metrics.New(
//	    metrics.WithRegistry(registry),
//	)))
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AnatoleLucet/reactor"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for event duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:   "reactor",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Observer records every runtime event it is given.
type Observer struct {
	eventsTotal   *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec

	now func() time.Time
}

// New registers the metrics and returns an observer feeding them.
// Registering twice on the same registry panics, like promauto does.
func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Observer{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of reactive runtime events",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Reactive runtime event duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "failures_total",
			Help:        "Total number of failed reactive runtime events by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "error_type"}),

		now: time.Now,
	}
}

func (o *Observer) Begin(ev reactor.Event) func(error) {
	kind := ev.Kind.String()
	start := o.now()

	return func(err error) {
		o.eventDuration.WithLabelValues(kind).Observe(o.now().Sub(start).Seconds())

		if err != nil {
			o.eventsTotal.WithLabelValues(kind, "error").Inc()
			o.failures.WithLabelValues(kind, errorType(err)).Inc()
			return
		}

		o.eventsTotal.WithLabelValues(kind, "success").Inc()
	}
}

func errorType(err error) string {
	var (
		cyclic   *reactor.CyclicDependencyError
		finalize *reactor.UseAfterFinalizeError
		fin      *reactor.FinalizerError
		setup    *reactor.SetupError
		cleanup  *reactor.CleanupError
		panicked *reactor.PanicError
	)

	switch {
	case errors.As(err, &setup):
		return "setup"
	case errors.As(err, &cleanup):
		return "cleanup"
	case errors.As(err, &cyclic):
		return "cyclic_dependency"
	case errors.As(err, &finalize):
		return "use_after_finalize"
	case errors.As(err, &fin):
		return "finalizer"
	case errors.As(err, &panicked):
		return "panic"
	default:
		return "other"
	}
}

var _ reactor.Observer = (*Observer)(nil)
