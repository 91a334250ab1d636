package fleet

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

type coordinatorMetrics struct {
	assignments metric.Int64Counter
	releases    metric.Int64Counter
}

func newCoordinatorMetrics(m metric.Meter) coordinatorMetrics {
	if m == nil {
		m = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	assignments, err := m.Int64Counter("fleet.assignments",
		metric.WithDescription("Assignment attempts by outcome"))
	if err != nil {
		assignments, _ = metricnoop.NewMeterProvider().Meter(instrumentationName).Int64Counter("fleet.assignments")
	}
	releases, err := m.Int64Counter("fleet.releases",
		metric.WithDescription("Drone releases"))
	if err != nil {
		releases, _ = metricnoop.NewMeterProvider().Meter(instrumentationName).Int64Counter("fleet.releases")
	}
	return coordinatorMetrics{assignments: assignments, releases: releases}
}

func (m coordinatorMetrics) assignment(ctx context.Context, outcome string) {
	m.assignments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m coordinatorMetrics) release(ctx context.Context) {
	m.releases.Add(ctx, 1)
}
