// Package lifecycle drives orders through their state machine. Drone
// binding is delegated to the fleet coordinator; releases caused by a
// terminal transition commit in the same transaction as the order change.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
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
	"drone-fleet/internal/fleet"
	"drone-fleet/internal/order"
	"drone-fleet/internal/pkg/validation"
	"drone-fleet/internal/store"
)

const (
	instrumentationName = "drone-fleet/internal/lifecycle"

	maxTrackingAttempts = 5
	// a transition whose snapshot went stale is re-read this many times
	maxTransitionAttempts = 3
)

var errStale = errors.New("order changed concurrently")

// DroneReleaser frees a drone inside a caller-owned transaction.
type DroneReleaser interface {
	ReleaseTx(ctx context.Context, tx store.Tx, droneID uuid.UUID) (*drone.Drone, error)
}

var _ DroneReleaser = (*fleet.Coordinator)(nil)

// TransitionContext carries the optional data a transition records.
type TransitionContext struct {
	Reason             string
	ActualDeliveryTime *time.Time
}

// Outcome is the committed result of a transition.
type Outcome struct {
	Order *order.Order
	// Released is the drone freed by this transition, if any.
	Released *drone.Drone
	// Changed is false when the order was already in the target status.
	Changed bool
}

type Manager struct {
	store    store.Store
	releaser DroneReleaser
	pricing  order.Pricing
	tracking func(time.Time) string
	tracer   trace.Tracer
	metrics  managerMetrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Manager)

func WithPricing(p order.Pricing) Option {
	return func(m *Manager) { m.pricing = p }
}

// WithTrackingGenerator replaces order.NewTrackingNumber.
func WithTrackingGenerator(gen func(time.Time) string) Option {
	return func(m *Manager) { m.tracking = gen }
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.metrics = newManagerMetrics(meter) }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, releaser DroneReleaser, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		releaser: releaser,
		pricing:  order.DefaultPricing(),
		tracking: order.NewTrackingNumber,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		metrics:  newManagerMetrics(nil),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ------------------------------------------------------------------------------------------------
// Creation

func (m *Manager) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateOrder")
	defer span.End()

	if err := validation.Struct(req); err != nil {
		recordError(span, err)
		return nil, err
	}
	for _, a := range []order.Address{req.PickupLocation, req.DeliveryLocation} {
		if err := common.ValidateLatLng(a.Lat, a.Lng); err != nil {
			err := domainerrors.NewValidation(err.Error())
			recordError(span, err)
			return nil, err
		}
	}

	now := m.now()
	o := order.New(req, m.pricing, now)
	for attempt := 1; ; attempt++ {
		o.TrackingNumber = m.tracking(now)
		err := m.store.Orders().Create(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) {
			err = domainerrors.NewInternal("failed to create order", err)
			recordError(span, err)
			return nil, err
		}
		if attempt == maxTrackingAttempts {
			err = domainerrors.NewInternal("could not allocate a unique tracking number", err)
			recordError(span, err)
			return nil, err
		}
		m.logger.WarnContext(ctx, "tracking number collision",
			slog.String("tracking_number", o.TrackingNumber),
			slog.Int("attempt", attempt),
		)
	}

	span.SetAttributes(
		attribute.String("order.id", o.ID.String()),
		attribute.String("order.tracking_number", o.TrackingNumber),
	)
	m.metrics.created(ctx)
	return o, nil
}

// ------------------------------------------------------------------------------------------------
// Transitions

// Transition moves the order to target. Moving to the current status is a
// no-op. assigned is reachable only through the fleet coordinator.
func (m *Manager) Transition(ctx context.Context, orderID uuid.UUID, target order.Status, tc TransitionContext) (*Outcome, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Transition", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.target", string(target)),
	))
	defer span.End()

	out, err := m.transition(ctx, orderID, target, tc)
	if err != nil {
		err = wrapStore(err)
		recordError(span, err)
		return nil, err
	}
	if out.Changed {
		m.metrics.transitioned(ctx, target)
	}
	return out, nil
}

func (m *Manager) transition(ctx context.Context, orderID uuid.UUID, target order.Status, tc TransitionContext) (*Outcome, error) {
	for range maxTransitionAttempts {
		cur, err := m.store.Orders().Get(ctx, orderID)
		if err != nil {
			return nil, translate(err, orderID)
		}
		if cur.Status == target {
			return &Outcome{Order: cur}, nil
		}
		if target == order.StatusAssigned || !order.CanTransition(cur.Status, target) {
			return nil, domainerrors.OrderInvalidTransition(string(cur.Status), string(target))
		}

		out, err := m.apply(ctx, cur, target, tc)
		if errors.Is(err, errStale) {
			continue
		}
		return out, err
	}
	return nil, domainerrors.NewConflict("order " + orderID.String() + " is being modified concurrently")
}

// apply commits the transition if the order still matches the snapshot it
// was checked against. A bound drone is released first, in the same
// transaction, when the target is terminal.
func (m *Manager) apply(ctx context.Context, snap *order.Order, target order.Status, tc TransitionContext) (*Outcome, error) {
	now := m.now()
	unchanged := func(o *order.Order) bool {
		return o.Status == snap.Status && sameDrone(o.DroneID, snap.DroneID)
	}
	mutate := func(o *order.Order) {
		o.ApplyTransition(target, tc.Reason, tc.ActualDeliveryTime, now)
	}

	out := &Outcome{Changed: true}
	release := target.IsTerminal() && snap.DroneID != nil
	if !release {
		o, ok, err := m.store.Orders().Update(ctx, snap.ID, unchanged, mutate)
		if err != nil {
			return nil, translate(err, snap.ID)
		}
		if !ok {
			return nil, errStale
		}
		out.Order = o
		return out, nil
	}

	err := m.store.InTx(ctx, func(tx store.Tx) error {
		d, err := m.releaser.ReleaseTx(ctx, tx, *snap.DroneID)
		if err != nil && !domainerrors.HasCode(err, domainerrors.ErrNotFound) {
			return err
		}
		o, ok, err := tx.Orders().Update(ctx, snap.ID, unchanged, mutate)
		if err != nil {
			return translate(err, snap.ID)
		}
		if !ok {
			return errStale
		}
		out.Order = o
		out.Released = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder cancels a non-terminal order. Cancelling a cancelled order is
// a no-op.
func (m *Manager) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*Outcome, error) {
	return m.Transition(ctx, orderID, order.StatusCancelled, TransitionContext{Reason: reason})
}

// ------------------------------------------------------------------------------------------------
// Metadata

// UpdatePayment records payment state. It is audit metadata and allowed in
// every status.
func (m *Manager) UpdatePayment(ctx context.Context, orderID uuid.UUID, status order.PaymentStatus, paymentID *string) (*order.Order, error) {
	now := m.now().UTC()
	o, _, err := m.store.Orders().Update(ctx, orderID, nil, func(o *order.Order) {
		o.PaymentStatus = status
		if paymentID != nil {
			id := *paymentID
			o.PaymentID = &id
		}
		o.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, orderID))
	}
	return o, nil
}

// AssignDeliveryStaff hands the order to a member of the delivery staff.
// Reassignment is allowed until the order is terminal.
func (m *Manager) AssignDeliveryStaff(ctx context.Context, orderID uuid.UUID, staffID string) (*order.Order, error) {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return nil, domainerrors.NewValidation("staffId is required")
	}

	now := m.now().UTC()
	o, ok, err := m.store.Orders().Update(ctx, orderID, func(o *order.Order) bool {
		return !o.Status.IsTerminal()
	}, func(o *order.Order) {
		o.DeliveryStaffID = &staffID
		o.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, orderID))
	}
	if !ok {
		return nil, domainerrors.NewConflict("order " + orderID.String() + " is " + string(o.Status))
	}
	return o, nil
}

// UpdateCurrentLocation records the parcel position while a drone holds it.
func (m *Manager) UpdateCurrentLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) (*order.Order, error) {
	if err := common.ValidateLatLng(lat, lng); err != nil {
		return nil, domainerrors.NewValidation(err.Error())
	}

	now := m.now().UTC()
	o, ok, err := m.store.Orders().Update(ctx, orderID, func(o *order.Order) bool {
		return o.Status.HoldsDrone()
	}, func(o *order.Order) {
		o.CurrentLocation = &order.Position{Lat: lat, Lng: lng, Timestamp: now}
		o.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, orderID))
	}
	if !ok {
		return nil, domainerrors.NewConflict("order " + orderID.String() + " is not in flight (" + string(o.Status) + ")")
	}
	return o, nil
}

// ------------------------------------------------------------------------------------------------
// Queries

func (m *Manager) Get(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	o, err := m.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, wrapStore(translate(err, orderID))
	}
	return o, nil
}

func (m *Manager) GetByTrackingNumber(ctx context.Context, tracking string) (*order.Order, error) {
	if !order.IsTrackingNumber(tracking) {
		return nil, domainerrors.NewNotFound("order", tracking)
	}
	o, err := m.store.Orders().GetByTrackingNumber(ctx, tracking)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NewNotFound("order", tracking)
	}
	if err != nil {
		return nil, domainerrors.NewInternal("failed to load order", err)
	}
	return o, nil
}

// List returns matching orders, newest first.
func (m *Manager) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	orders, err := m.store.Orders().List(ctx, f)
	if err != nil {
		return nil, domainerrors.NewInternal("failed to list orders", err)
	}
	return orders, nil
}

// ListActive returns confirmed, assigned and in-transit orders.
func (m *Manager) ListActive(ctx context.Context) ([]*order.Order, error) {
	return m.List(ctx, order.Filter{Status: []order.Status{order.StatusConfirmed, order.StatusAssigned, order.StatusInTransit}})
}

func (m *Manager) ComputeStats(ctx context.Context, now time.Time) (order.Stats, error) {
	orders, err := m.store.Orders().List(ctx, order.Filter{})
	if err != nil {
		return order.Stats{}, domainerrors.NewInternal("failed to list orders", err)
	}
	return Summarize(orders, now), nil
}

// ------------------------------------------------------------------------------------------------
// helpers

func sameDrone(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func translate(err error, orderID uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.OrderNotFound(orderID.String())
	}
	return err
}

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domainerrors.As(err); ok {
		return err
	}
	return domainerrors.NewInternal("store operation failed", err)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
