package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "quiz-app-ingest"

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	IngestRequests      metric.Int64Counter
	IngestDuration      metric.Float64Histogram
	IngestChunks        metric.Int64Histogram
	StorageFailures     metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestRequests, err := meter.Int64Counter(
		"ingest.requests.total",
		metric.WithDescription("Ingestion attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestChunks, err := meter.Int64Histogram(
		"ingest.chunks",
		metric.WithDescription("Chunks produced per successful ingestion"),
	)
	if err != nil {
		return nil, err
	}

	storageFailures, err := meter.Int64Counter(
		"storage.failures",
		metric.WithDescription("Failures writing uploads to transient storage"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		IngestRequests:      ingestRequests,
		IngestDuration:      ingestDuration,
		IngestChunks:        ingestChunks,
		StorageFailures:     storageFailures,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestion records one ingestion outcome. outcome is "success" or a failure kind.
func (m *Metrics) RecordIngestion(ctx context.Context, outcome string, duration float64, chunks int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("ingest.outcome", outcome))

	m.IngestRequests.Add(ctx, 1, attrs)
	m.IngestDuration.Record(ctx, duration, attrs)
	if outcome == "success" {
		m.IngestChunks.Record(ctx, int64(chunks))
	}
}

// RecordStorageFailure counts a failed write to transient storage
func (m *Metrics) RecordStorageFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.StorageFailures.Add(ctx, 1)
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
