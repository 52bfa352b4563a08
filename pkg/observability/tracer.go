// Package observability provides OpenTelemetry tracer setup and Prometheus
// metrics for the coordination core's lifecycle events, the same two
// instruments the teacher's pkg/observability package provides for the
// agent/LLM/tool layer — scoped here to the concerns this module actually
// owns (registrations, unregistrations, force-checkpoints, drains). Spans
// are opened by pkg/httpapi and the store backends; pkg/lifecycle and
// pkg/hooks open none.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerConfig configures the global tracer provider.
type TracerConfig struct {
	Enabled      bool
	ServiceName  string
	SamplingRate float64
}

// InitGlobalTracer installs a sampled TracerProvider as the process-wide
// default. When cfg.Enabled is false it returns a never-sampling provider
// without installing it, leaving the global provider unchanged. Callers
// that also want spans exported (OTLP, stdout, ...)
// should register a span processor on the returned provider before traffic
// starts; this module only needs the tracer to attribute spans to
// lifecycle operations, not to ship them anywhere by default.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetTracer returns a named tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
