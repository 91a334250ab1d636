// Package store is the persistence boundary for drones and orders.
//
// Every status change is a conditional update: the write happens only if
// the stored record still satisfies the caller's condition, and the caller
// learns whether it did. Multi-entity changes run inside InTx and must
// touch the drone before the order.
package store

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/order"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// DroneCond is evaluated against the stored drone while it is locked.
// A nil condition always matches.
type DroneCond func(d *drone.Drone) bool

type OrderCond func(o *order.Order) bool

type DroneMutation func(d *drone.Drone)

type OrderMutation func(o *order.Order)

func DroneIn(statuses ...drone.Status) DroneCond {
	return func(d *drone.Drone) bool { return slices.Contains(statuses, d.Status) }
}

// DroneClaimable matches available, active drones.
func DroneClaimable() DroneCond {
	return func(d *drone.Drone) bool { return d.Claimable() }
}

func OrderIn(statuses ...order.Status) OrderCond {
	return func(o *order.Order) bool { return slices.Contains(statuses, o.Status) }
}

type DroneRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*drone.Drone, error)
	Create(ctx context.Context, d *drone.Drone) error
	// List returns matching drones in ascending id order.
	List(ctx context.Context, f drone.Filter) ([]*drone.Drone, error)
	// Update applies mutate when cond holds for the stored drone. The bool
	// reports whether it did; on a miss the current record is returned
	// unchanged. ErrNotFound is returned for an unknown id.
	Update(ctx context.Context, id uuid.UUID, cond DroneCond, mutate DroneMutation) (*drone.Drone, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByTrackingNumber(ctx context.Context, tracking string) (*order.Order, error)
	// Create returns ErrDuplicate when the id or tracking number is taken.
	Create(ctx context.Context, o *order.Order) error
	// List returns matching orders, newest first.
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
	Update(ctx context.Context, id uuid.UUID, cond OrderCond, mutate OrderMutation) (*order.Order, bool, error)
	// CountBoundTo counts non-terminal orders referencing droneID.
	CountBoundTo(ctx context.Context, droneID uuid.UUID) (int, error)
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Drones() DroneRepository
	Orders() OrderRepository
}

type Store interface {
	Tx
	// InTx runs fn in a transaction. A non-nil error from fn rolls back
	// every write made through tx and is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// MatchOrder reports whether o satisfies f. DateFrom and DateTo are inclusive.
func MatchOrder(f order.Filter, o *order.Order) bool {
	if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
		return false
	}
	if len(f.Status) > 0 && !slices.Contains(f.Status, o.Status) {
		return false
	}
	if f.DroneID != nil && (o.DroneID == nil || *o.DroneID != *f.DroneID) {
		return false
	}
	if f.OperatorID != nil && (o.OperatorID == nil || *o.OperatorID != *f.OperatorID) {
		return false
	}
	if f.StaffID != nil && (o.DeliveryStaffID == nil || *o.DeliveryStaffID != *f.StaffID) {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func MatchDrone(f drone.Filter, d *drone.Drone) bool {
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.OperatorID != nil && (d.OperatorID == nil || *d.OperatorID != *f.OperatorID) {
		return false
	}
	if f.IsActive != nil && d.IsActive != *f.IsActive {
		return false
	}
	return true
}
