// Package tracing turns runtime activity into OpenTelemetry spans.
//
// Events that happen while another one is running become its children, so a
// formula recomputed during a resource setup shows up under that setup.
//
// The tracer comes from the global OpenTelemetry tracer provider unless one is
// given with WithTracer. Configure the provider before creating the observer:
//
//	otel.SetTracerProvider(tp)
//	reactor.Configure(reactor.WithObserver(tracing.New()))
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/reactor"
)

// Default tracer name.
const defaultTracerName = "reactor"

// Config configures the OpenTelemetry observer.
type Config struct {
	// TracerName is the name of the tracer (default: "reactor").
	TracerName string

	// Context is the parent of the outermost spans (default: context.Background()).
	Context context.Context

	// Filter determines which events to trace.
	// If nil, all events are traced.
	Filter func(ev reactor.Event) bool

	tracer trace.Tracer
}

// Option configures the OpenTelemetry observer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracer uses tracer instead of one from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		c.tracer = tracer
	}
}

// WithContext sets the parent context of the outermost spans.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(ev reactor.Event) bool) Option {
	return func(c *Config) {
		c.Filter = filter
	}
}

func defaultConfig() Config {
	return Config{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
}

// Observer starts one span per runtime event.
// Like the runtime it observes, it must only be used from one goroutine at a time.
type Observer struct {
	config Config

	// contexts of the spans currently open, innermost last
	stack []context.Context
}

func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.tracer == nil {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return &Observer{config: config}
}

func (o *Observer) Begin(ev reactor.Event) func(error) {
	if o.config.Filter != nil && !o.config.Filter(ev) {
		return nil
	}

	parent := o.config.Context
	if len(o.stack) > 0 {
		parent = o.stack[len(o.stack)-1]
	}

	ctx, span := o.config.tracer.Start(parent, "reactor."+ev.Kind.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("reactor.kind", ev.Kind.String()),
			attribute.String("reactor.description", ev.Description),
			attribute.Int64("reactor.timestamp", int64(ev.Timestamp)),
		),
	)

	o.stack = append(o.stack, ctx)
	depth := len(o.stack)

	return func(err error) {
		// events end in reverse order, but a panic may skip some ends
		if len(o.stack) >= depth {
			o.stack = o.stack[:depth-1]
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End()
	}
}

var _ reactor.Observer = (*Observer)(nil)
