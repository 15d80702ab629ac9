// Package telemetry initializes OpenTelemetry metrics for mentor.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// Metrics holds the instruments recorded by the gateway and the engine. A
// nil *Metrics is safe to use; every method is a no-op on it.
type Metrics struct {
	completions metric.Int64Counter
	rotations   metric.Int64Counter
	exhausted   metric.Int64Counter
	queries     metric.Int64Counter
}

// Init sets up a meter provider exporting to w every 30 seconds and returns
// the service metrics plus a shutdown func.
func Init(ctx context.Context, version string, w io.Writer) (*Metrics, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("mentor"),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second)),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	metrics, err := NewMetrics(mp.Meter("mentor"))
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(ctx)
	}
	return metrics, shutdown, nil
}

// NewMetrics creates the instruments on an existing meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	completions, err := meter.Int64Counter("mentor.gateway.completions",
		metric.WithDescription("Completion attempts by provider and outcome"))
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64Counter("mentor.gateway.rotations",
		metric.WithDescription("Provider rotation advances"))
	if err != nil {
		return nil, err
	}
	exhausted, err := meter.Int64Counter("mentor.gateway.exhausted",
		metric.WithDescription("Full rotations where every provider failed"))
	if err != nil {
		return nil, err
	}
	queries, err := meter.Int64Counter("mentor.engine.queries",
		metric.WithDescription("Pipeline invocations by intent"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		completions: completions,
		rotations:   rotations,
		exhausted:   exhausted,
		queries:     queries,
	}, nil
}

// Completion records one completion attempt.
func (m *Metrics) Completion(ctx context.Context, provider string, ok bool) {
	if m == nil {
		return
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", ok),
	))
}

// Rotation records a rotation advance.
func (m *Metrics) Rotation(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

// Exhausted records a fully failed rotation.
func (m *Metrics) Exhausted(ctx context.Context) {
	if m == nil {
		return
	}
	m.exhausted.Add(ctx, 1)
}

// Query records one pipeline invocation.
func (m *Metrics) Query(ctx context.Context, intent string) {
	if m == nil {
		return
	}
	m.queries.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", intent)))
}
