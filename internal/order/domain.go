package order

import (
	"time"

	"github.com/google/uuid"

	domainerrors "drone-fleet/internal/errors"
)

// transitions is the complete lifecycle table. assigned is reachable only
// through the fleet coordinator, which also accepts pending orders.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusAssigned, StatusCancelled},
	StatusConfirmed: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusFailed, StatusCancelled},
	StatusDelivered: nil,
	StatusCancelled: nil,
	StatusFailed:    nil,
}

// AssignableStatuses are the statuses an order may be claimed from.
var AssignableStatuses = []Status{StatusPending, StatusConfirmed}

// ActiveStatuses are the statuses in which a drone is bound to the order.
var ActiveStatuses = []Status{StatusAssigned, StatusInTransit}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", domainerrors.NewValidation("unknown order status " + s)
	}
	return st, nil
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch p := PaymentStatus(s); p {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return p, nil
	}
	return "", domainerrors.NewValidation("unknown payment status " + s)
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// HoldsDrone reports whether an order in status s has a drone bound to it.
func (s Status) HoldsDrone() bool {
	return s == StatusAssigned || s == StatusInTransit
}

func (s Status) Assignable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// New builds a pending order from a validated request. Derived amounts
// are computed here and never recomputed.
func New(req CreateOrderRequest, pricing Pricing, now time.Time) *Order {
	var totalWeight float64
	var estimated float64
	items := make([]Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = it
		totalWeight += float64(it.Quantity) * it.Weight
		estimated += float64(it.Quantity) * EstimatedItemValue
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	now = now.UTC()
	return &Order{
		ID:                    uuid.New(),
		CustomerID:            req.CustomerID,
		CustomerName:          req.CustomerName,
		CustomerEmail:         req.CustomerEmail,
		CustomerPhone:         req.CustomerPhone,
		Status:                StatusPending,
		Priority:              priority,
		Items:                 items,
		TotalWeight:           totalWeight,
		EstimatedValue:        estimated,
		SpecialInstructions:   req.SpecialInstructions,
		PickupLocation:        req.PickupLocation,
		DeliveryLocation:      req.DeliveryLocation,
		RequestedDeliveryTime: req.RequestedDeliveryTime,
		Price:                 pricing.Price(totalWeight),
		PaymentStatus:         PaymentPending,
		PaymentMethod:         req.PaymentMethod,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// ApplyTransition moves o to target and stamps the timestamps that belong
// to it. Legality must already have been checked with CanTransition.
func (o *Order) ApplyTransition(target Status, reason string, deliveredAt *time.Time, now time.Time) {
	now = now.UTC()
	o.Status = target
	o.UpdatedAt = now

	switch target {
	case StatusInTransit:
		o.ActualPickupTime = &now
	case StatusDelivered:
		at := now
		if deliveredAt != nil {
			at = deliveredAt.UTC()
		}
		o.ActualDeliveryTime = &at
		o.CompletedAt = &now
	case StatusCancelled, StatusFailed:
		o.CancelledAt = &now
		if reason != "" {
			r := reason
			o.CancellationReason = &r
		}
	}

	if target.IsTerminal() {
		o.DroneID = nil
	}
}

func (o *Order) PickupPoint() (lat, lng float64) {
	return o.PickupLocation.Lat, o.PickupLocation.Lng
}

// Clone returns a deep copy; stores hand these out so callers never share
// state with the stored record.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.DroneID = clonePtr(o.DroneID)
	c.OperatorID = clonePtr(o.OperatorID)
	c.DeliveryStaffID = clonePtr(o.DeliveryStaffID)
	c.RequestedDeliveryTime = clonePtr(o.RequestedDeliveryTime)
	c.ActualPickupTime = clonePtr(o.ActualPickupTime)
	c.ActualDeliveryTime = clonePtr(o.ActualDeliveryTime)
	c.PaymentMethod = clonePtr(o.PaymentMethod)
	c.PaymentID = clonePtr(o.PaymentID)
	c.CurrentLocation = clonePtr(o.CurrentLocation)
	c.CompletedAt = clonePtr(o.CompletedAt)
	c.CancelledAt = clonePtr(o.CancelledAt)
	c.CancellationReason = clonePtr(o.CancellationReason)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
