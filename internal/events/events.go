package events

import (
	"context"
	"log/slog"
	"time"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/order"
)

type Type string

const (
	OrderCreated      Type = "order.created"
	OrderTransitioned Type = "order.transitioned"
	OrderAssigned     Type = "order.assigned"
	OrderPaymentSet   Type = "order.payment_updated"
	OrderStaffSet     Type = "order.staff_assigned"
	DroneReleased     Type = "drone.released"
)

// Event carries the full order state so consumers never call back.
type Event struct {
	Type       Type         `json:"type"`
	OrderID    string       `json:"orderId,omitempty"`
	DroneID    string       `json:"droneId,omitempty"`
	Status     string       `json:"status,omitempty"`
	Actor      string       `json:"actor,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
	Order      *order.Order `json:"order,omitempty"`
}

func ForOrder(t Type, o *order.Order, actor string) Event {
	e := Event{
		Type:       t,
		OrderID:    o.ID.String(),
		Status:     string(o.Status),
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Order:      o,
	}
	if o.DroneID != nil {
		e.DroneID = o.DroneID.String()
	}
	return e
}

func ForDrone(t Type, d *drone.Drone, actor string) Event {
	return Event{
		Type:       t,
		DroneID:    d.ID.String(),
		Status:     string(d.Status),
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

// Key partitions events so one order's history stays ordered.
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.DroneID
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }

// Emit publishes e after the change it describes has committed. A failed
// publish is logged and dropped; it never undoes the change.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "publish event failed",
			slog.String("type", string(e.Type)),
			slog.String("key", e.Key()),
			slog.String("error", err.Error()),
		)
	}
}
