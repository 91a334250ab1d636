package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-fleet/internal/lifecycle"
	"drone-fleet/internal/order"
)

func TestSummarize(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, loc)
	midnight := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)

	mk := func(s order.Status, p order.PaymentStatus, price float64, created time.Time) *order.Order {
		return &order.Order{Status: s, PaymentStatus: p, Price: price, CreatedAt: created.UTC()}
	}
	orders := []*order.Order{
		mk(order.StatusPending, order.PaymentPending, 20, now),
		mk(order.StatusConfirmed, order.PaymentCompleted, 25.49, midnight),
		mk(order.StatusAssigned, order.PaymentCompleted, 30.10, now),
		mk(order.StatusInTransit, order.PaymentProcessing, 99, now),
		mk(order.StatusDelivered, order.PaymentCompleted, 40.01, midnight.Add(-time.Second)),
		mk(order.StatusCancelled, order.PaymentRefunded, 50, now),
		mk(order.StatusFailed, order.PaymentCompleted, 10, midnight.Add(24*time.Hour)),
	}

	got := lifecycle.Summarize(orders, now)
	assert.Equal(t, order.Stats{
		Total:        7,
		Pending:      2,
		InTransit:    2,
		Delivered:    1,
		Cancelled:    2,
		TodayRevenue: 55.59,
	}, got)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, order.Stats{}, lifecycle.Summarize(nil, time.Now()))
}

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	f := newFixture()

	a := f.create(t)
	f.create(t)
	_, err := f.manager.UpdatePayment(ctx, a.ID, order.PaymentCompleted, nil)
	require.NoError(t, err)
	_, err = f.manager.CancelOrder(ctx, a.ID, "")
	require.NoError(t, err)

	stats, err := f.manager.ComputeStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 25.49, stats.TodayRevenue)
}
