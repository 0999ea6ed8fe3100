// Package telemetry wires OpenTelemetry tracing for the batch run and the
// REST surface.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures the telemetry provider.
type Config struct {
	// ServiceName names the service in exported spans.
	ServiceName string
	// ServiceVersion is the reported version.
	ServiceVersion string
	// Enabled turns tracing on. When false every span is a no-op.
	Enabled bool
	// SampleRate in [0, 1]; 1 samples everything.
	SampleRate float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "dwellsense",
		ServiceVersion: "dev",
		Enabled:        false,
		SampleRate:     1.0,
	}
}

// Provider owns the tracer provider lifecycle.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New creates a telemetry provider. Disabled tracing yields a noop tracer
// with no exporter behind it.
func New(config Config) (*Provider, error) {
	p := &Provider{config: config}

	if !config.Enabled {
		p.tracer = noop.NewTracerProvider().Tracer(config.ServiceName)
		return p, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	)

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracerProvider = tp
	p.tracer = tp.Tracer(config.ServiceName)
	return p, nil
}

// NewNoop creates a provider whose spans do nothing.
func NewNoop() *Provider {
	return &Provider{
		config: DefaultConfig(),
		tracer: noop.NewTracerProvider().Tracer("dwellsense"),
	}
}

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
