// Package fleet owns drone availability: registration, telemetry, and the
// atomic binding of one available drone to one assignable order.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"drone-fleet/internal/common"
	"drone-fleet/internal/drone"
	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/order"
	"drone-fleet/internal/store"
)

const instrumentationName = "drone-fleet/internal/fleet"

// LocationCache holds the latest fix per drone. The store stays
// authoritative; the cache only short-circuits reads.
type LocationCache interface {
	Set(ctx context.Context, droneID string, fix drone.Fix) error
	Get(ctx context.Context, droneID string) (*drone.Fix, error)
	Delete(ctx context.Context, droneID string) error
}

// Assignment is the committed result of binding a drone to an order.
type Assignment struct {
	Order *order.Order
	Drone *drone.Drone
	// Replayed is set when the binding already existed.
	Replayed bool
}

type Coordinator struct {
	store   store.Store
	cache   LocationCache
	tracer  trace.Tracer
	metrics coordinatorMetrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Coordinator)

func WithLocationCache(cache LocationCache) Option {
	return func(c *Coordinator) { c.cache = cache }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

func WithMeter(m metric.Meter) Option {
	return func(c *Coordinator) { c.metrics = newCoordinatorMetrics(m) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(st store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   st,
		tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
		metrics: newCoordinatorMetrics(nil),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ------------------------------------------------------------------------------------------------
// Assignment

// ListAvailable returns active drones in status available, ascending id.
func (c *Coordinator) ListAvailable(ctx context.Context) ([]*drone.Drone, error) {
	status := drone.StatusAvailable
	active := true
	drones, err := c.store.Drones().List(ctx, drone.Filter{Status: &status, IsActive: &active})
	if err != nil {
		return nil, domainerrors.NewInternal("failed to list drones", err)
	}
	return drones, nil
}

// Assign claims droneID and binds it to orderID in one transaction. The
// drone is claimed first; if the order then fails its precondition the
// claim is rolled back.
func (c *Coordinator) Assign(ctx context.Context, orderID, droneID uuid.UUID, operatorID string) (*Assignment, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Assign", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("drone.id", droneID.String()),
	))
	defer span.End()

	now := c.now().UTC()
	var res Assignment
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		d, claimed, err := tx.Drones().Update(ctx, droneID, store.DroneClaimable(), func(d *drone.Drone) {
			d.Status = drone.StatusInTransit
			d.UpdatedAt = now
		})
		if err != nil {
			return translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) })
		}
		if !claimed {
			if replay, ok := alreadyBound(ctx, tx, orderID, d); ok {
				res = Assignment{Order: replay, Drone: d, Replayed: true}
				return nil
			}
			return domainerrors.DroneUnavailable(droneID.String())
		}

		o, bound, err := tx.Orders().Update(ctx, orderID, store.OrderIn(order.AssignableStatuses...), func(o *order.Order) {
			o.Status = order.StatusAssigned
			o.DroneID = &droneID
			if operatorID != "" {
				op := operatorID
				o.OperatorID = &op
			}
			o.UpdatedAt = now
		})
		if err != nil {
			return translate(err, func() error { return domainerrors.OrderNotFound(orderID.String()) })
		}
		if !bound {
			return domainerrors.OrderNotAssignable(orderID.String(), string(o.Status))
		}
		res = Assignment{Order: o, Drone: d}
		return nil
	})
	if err != nil {
		err = wrapStore(err)
		c.metrics.assignment(ctx, outcomeOf(err))
		recordError(span, err)
		return nil, err
	}

	if res.Replayed {
		c.metrics.assignment(ctx, "replayed")
	} else {
		c.metrics.assignment(ctx, "won")
	}
	return &res, nil
}

// alreadyBound reports whether d is in transit for orderID, which makes a
// repeated Assign a no-op.
func alreadyBound(ctx context.Context, tx store.Tx, orderID uuid.UUID, d *drone.Drone) (*order.Order, bool) {
	if d.Status != drone.StatusInTransit {
		return nil, false
	}
	o, err := tx.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, false
	}
	if o.Status.HoldsDrone() && o.DroneID != nil && *o.DroneID == d.ID {
		return o, true
	}
	return nil, false
}

// Release returns a drone to the pool. Releasing an available drone is a
// no-op.
func (c *Coordinator) Release(ctx context.Context, droneID uuid.UUID) (*drone.Drone, error) {
	var out *drone.Drone
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = c.ReleaseTx(ctx, tx, droneID)
		return err
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return out, nil
}

// ReleaseTx releases droneID inside a caller-owned transaction so the
// release commits together with the order change that triggered it.
func (c *Coordinator) ReleaseTx(ctx context.Context, tx store.Tx, droneID uuid.UUID) (*drone.Drone, error) {
	now := c.now().UTC()
	released := false
	d, _, err := tx.Drones().Update(ctx, droneID, nil, func(d *drone.Drone) {
		if d.Status == drone.StatusAvailable {
			return
		}
		d.Status = drone.StatusAvailable
		d.UpdatedAt = now
		released = true
	})
	if err != nil {
		return nil, translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) })
	}
	if released {
		c.metrics.release(ctx)
	}
	return d, nil
}

// ReleaseIdle releases droneID only when no active order holds it. It
// backs the manual release endpoint.
func (c *Coordinator) ReleaseIdle(ctx context.Context, droneID uuid.UUID) (*drone.Drone, error) {
	var out *drone.Drone
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		if err := lockUnbound(ctx, tx, droneID); err != nil {
			return err
		}
		var err error
		out, err = c.ReleaseTx(ctx, tx, droneID)
		return err
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return out, nil
}

// lockUnbound takes the drone's lock and fails if an active order holds it.
func lockUnbound(ctx context.Context, tx store.Tx, droneID uuid.UUID) error {
	if _, _, err := tx.Drones().Update(ctx, droneID, nil, func(*drone.Drone) {}); err != nil {
		return translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) })
	}
	n, err := tx.Orders().CountBoundTo(ctx, droneID)
	if err != nil {
		return err
	}
	if n > 0 {
		return domainerrors.DroneInUse(droneID.String())
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// Telemetry

func (c *Coordinator) UpdateLocation(ctx context.Context, droneID uuid.UUID, lat, lng float64, address *string) (*drone.Drone, error) {
	if err := common.ValidateLatLng(lat, lng); err != nil {
		return nil, domainerrors.NewValidation(err.Error())
	}

	now := c.now().UTC()
	d, _, err := c.store.Drones().Update(ctx, droneID, nil, func(d *drone.Drone) {
		d.Latitude = lat
		d.Longitude = lng
		if address != nil {
			d.Address = address
		}
		d.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, droneID.String(), d.Fix()); err != nil {
			c.logger.WarnContext(ctx, "drone location cache write failed",
				slog.String("drone_id", droneID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return d, nil
}

// GetLocation reads the latest fix, preferring the cache.
func (c *Coordinator) GetLocation(ctx context.Context, droneID uuid.UUID) (*drone.Fix, error) {
	if c.cache != nil {
		fix, err := c.cache.Get(ctx, droneID.String())
		if err == nil && fix != nil {
			return fix, nil
		}
	}
	d, err := c.Get(ctx, droneID)
	if err != nil {
		return nil, err
	}
	fix := d.Fix()
	return &fix, nil
}

// UpdateBattery stores level clamped to [0,100]. Status is untouched.
func (c *Coordinator) UpdateBattery(ctx context.Context, droneID uuid.UUID, level float64) (*drone.Drone, error) {
	if math.IsNaN(level) {
		return nil, domainerrors.NewValidation("battery level must be a number")
	}
	level = drone.ClampBattery(level)

	now := c.now().UTC()
	d, _, err := c.store.Drones().Update(ctx, droneID, nil, func(d *drone.Drone) {
		d.BatteryLevel = level
		d.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	return d, nil
}

// ------------------------------------------------------------------------------------------------
// helpers

// translate maps store sentinels to domain errors; anything else passes
// through for wrapStore.
func translate(err error, notFound func() error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound()
	}
	return err
}

// wrapStore leaves domain errors alone and marks everything else internal.
func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domainerrors.As(err); ok {
		return err
	}
	return domainerrors.NewInternal("store operation failed", err)
}

func outcomeOf(err error) string {
	switch {
	case domainerrors.HasCode(err, domainerrors.ErrDroneUnavailable):
		return "lost"
	case domainerrors.HasCode(err, domainerrors.ErrOrderNotAssignable):
		return "not_assignable"
	case domainerrors.HasCode(err, domainerrors.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
