package order_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/order"
)

var allStatuses = []order.Status{
	order.StatusPending, order.StatusConfirmed, order.StatusAssigned, order.StatusInTransit,
	order.StatusDelivered, order.StatusCancelled, order.StatusFailed,
}

func sampleRequest(items ...order.Item) order.CreateOrderRequest {
	return order.CreateOrderRequest{
		CustomerID:       "cust-1",
		CustomerName:     "Jane Doe",
		CustomerEmail:    "jane@example.com",
		Items:            items,
		PickupLocation:   order.Address{Address: "1 Depot Rd", Lat: 40.7128, Lng: -74.0060},
		DeliveryLocation: order.Address{Address: "9 Main St", Lat: 40.7306, Lng: -73.9352},
	}
}

func TestNew_ScenarioA(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	o := order.New(sampleRequest(order.Item{Name: "parcel", Quantity: 1, Weight: 1.8}), order.DefaultPricing(), now)

	assert.InDelta(t, 1.8, o.TotalWeight, 1e-9)
	assert.Equal(t, 25.49, o.Price)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, order.PriorityNormal, o.Priority)
	assert.Equal(t, 10.0, o.EstimatedValue)
	assert.Nil(t, o.DroneID)
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, now, o.CreatedAt)
}

func TestNew_DerivedAmounts(t *testing.T) {
	items := []order.Item{
		{Name: "a", Quantity: 2, Weight: 1.25},
		{Name: "b", Quantity: 3, Weight: 0.5},
		{Name: "c", Quantity: 1, Weight: 0},
	}
	now := time.Now()
	first := order.New(sampleRequest(items...), order.DefaultPricing(), now)
	second := order.New(sampleRequest(items...), order.DefaultPricing(), now)

	assert.InDelta(t, 4.0, first.TotalWeight, 1e-9)
	assert.Equal(t, 60.0, first.EstimatedValue)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, 30.99, first.Price)
}

func TestPricing_RoundsToCents(t *testing.T) {
	p := order.Pricing{BasePrice: 1, PerKgRate: 0.333, DistanceFee: 0}
	assert.Equal(t, 1.33, p.Price(1))
	assert.Equal(t, 1.67, p.Price(2))
}

func TestCanTransition_Table(t *testing.T) {
	legal := map[order.Status][]order.Status{
		order.StatusPending:   {order.StatusConfirmed, order.StatusAssigned, order.StatusCancelled},
		order.StatusConfirmed: {order.StatusAssigned, order.StatusCancelled},
		order.StatusAssigned:  {order.StatusInTransit, order.StatusCancelled},
		order.StatusInTransit: {order.StatusDelivered, order.StatusFailed, order.StatusCancelled},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, l := range legal[from] {
				if l == to {
					want = true
				}
			}
			assert.Equalf(t, want, order.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_Classification(t *testing.T) {
	for _, s := range allStatuses {
		assert.Equal(t, s == order.StatusAssigned || s == order.StatusInTransit, s.HoldsDrone(), s)
		assert.Equal(t, s == order.StatusPending || s == order.StatusConfirmed, s.Assignable(), s)
	}
	assert.True(t, order.StatusFailed.IsTerminal())
	assert.False(t, order.StatusInTransit.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	s, err := order.ParseStatus("in-transit")
	require.NoError(t, err)
	assert.Equal(t, order.StatusInTransit, s)

	_, err = order.ParseStatus("IN_TRANSIT")
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrValidation))
}

func TestApplyTransition_Timestamps(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	droneID := uuid.New()

	o := order.New(sampleRequest(order.Item{Name: "x", Quantity: 1, Weight: 1}), order.DefaultPricing(), now)
	o.Status = order.StatusAssigned
	o.DroneID = &droneID

	o.ApplyTransition(order.StatusInTransit, "", nil, now)
	require.NotNil(t, o.ActualPickupTime)
	assert.Equal(t, &droneID, o.DroneID)

	later := now.Add(time.Hour)
	o.ApplyTransition(order.StatusDelivered, "", nil, later)
	assert.Equal(t, order.StatusDelivered, o.Status)
	require.NotNil(t, o.CompletedAt)
	require.NotNil(t, o.ActualDeliveryTime)
	assert.Equal(t, later, *o.ActualDeliveryTime)
	assert.Nil(t, o.DroneID)

	c := order.New(sampleRequest(order.Item{Name: "x", Quantity: 1, Weight: 1}), order.DefaultPricing(), now)
	c.ApplyTransition(order.StatusCancelled, "customer request", nil, later)
	require.NotNil(t, c.CancelledAt)
	require.NotNil(t, c.CancellationReason)
	assert.Equal(t, "customer request", *c.CancellationReason)
	assert.Nil(t, c.CompletedAt)
}

func TestClone_IsDeep(t *testing.T) {
	o := order.New(sampleRequest(order.Item{Name: "x", Quantity: 1, Weight: 1}), order.DefaultPricing(), time.Now())
	id := uuid.New()
	o.DroneID = &id

	c := o.Clone()
	c.Items[0].Quantity = 99
	*c.DroneID = uuid.New()

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, id, *o.DroneID)
}

func TestNewTrackingNumber(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tn := order.NewTrackingNumber(now)

	assert.Regexp(t, `^DF1700000000123[0-9A-Z]{4}$`, tn)
	assert.True(t, order.IsTrackingNumber(tn))
	assert.False(t, order.IsTrackingNumber("XX1700000000123ABCD"))
	assert.False(t, order.IsTrackingNumber("DF1700000000123abcd"))
}
