package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// TracerName is used for spans started by the ingestion pipeline.
const TracerName = "quiz-app-ingest"

// TracerOptions configures InitTracer.
type TracerOptions struct {
	ServiceName string
	Environment string
	Endpoint    string  // OTLP gRPC endpoint; tracing is disabled when empty
	SampleRatio float64 // fraction of root spans sampled
}

// InitTracer initializes OpenTelemetry tracing and returns its shutdown func.
// With no endpoint configured the global no-op provider is left in place.
func InitTracer(opts TracerOptions) (func(context.Context), error) {
	if opts.Endpoint == "" {
		slog.Info("OpenTelemetry tracing disabled, no OTLP endpoint configured")
		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	// Create OTLP exporter (to Jaeger, Tempo, etc.)
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(opts.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	)

	otel.SetTracerProvider(tp)

	slog.Info("OpenTelemetry tracer initialized",
		slog.String("service", opts.ServiceName),
		slog.String("endpoint", opts.Endpoint),
		slog.Float64("sample_ratio", opts.SampleRatio))

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}, nil
}
