package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"drone-fleet/internal/order"
)

type managerMetrics struct {
	ordersCreated metric.Int64Counter
	transitions   metric.Int64Counter
}

func newManagerMetrics(m metric.Meter) managerMetrics {
	if m == nil {
		m = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	noop := metricnoop.NewMeterProvider().Meter(instrumentationName)

	created, err := m.Int64Counter("orders.created",
		metric.WithDescription("Orders accepted"))
	if err != nil {
		created, _ = noop.Int64Counter("orders.created")
	}
	transitions, err := m.Int64Counter("orders.transitions",
		metric.WithDescription("Order status changes by target status"))
	if err != nil {
		transitions, _ = noop.Int64Counter("orders.transitions")
	}
	return managerMetrics{ordersCreated: created, transitions: transitions}
}

func (m managerMetrics) created(ctx context.Context) {
	m.ordersCreated.Add(ctx, 1)
}

func (m managerMetrics) transitioned(ctx context.Context, to order.Status) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(to))))
}
