package instrument

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

// Default tracer name for atomkit instrumentation.
const defaultTracerName = "atomkit"

// TracingConfig configures the OpenTelemetry scheduler.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "atomkit").
	TracerName string

	// SpanName is the span name per delivered notification
	// (default: "atomkit.notify").
	SpanName string

	// Next is an optional downstream scheduler; the span wraps the
	// notification wherever it eventually runs.
	Next atomkit.Scheduler

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TracingOption configures the OpenTelemetry scheduler.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithSpanName sets the per-notification span name.
func WithSpanName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.SpanName = name
	}
}

// WithTracingNext chains a downstream scheduler.
func WithTracingNext(next atomkit.Scheduler) TracingOption {
	return func(c *TracingConfig) {
		c.Next = next
	}
}

// Tracing is a Scheduler running each delivered notification inside an
// OpenTelemetry span carrying the listener ID.
type Tracing struct {
	config TracingConfig
}

// NewTracing resolves the tracer and returns the scheduler.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{
		TracerName: defaultTracerName,
		SpanName:   "atomkit.notify",
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &Tracing{config: config}
}

// Schedule implements atomkit.Scheduler.
func (t *Tracing) Schedule(listenerID uint64, notify func()) {
	wrapped := func() {
		_, span := t.config.tracer.Start(context.Background(), t.config.SpanName,
			trace.WithAttributes(attribute.Int64("atomkit.listener_id", int64(listenerID))))
		defer span.End()
		notify()
	}
	if t.config.Next != nil {
		t.config.Next.Schedule(listenerID, wrapped)
		return
	}
	wrapped()
}
