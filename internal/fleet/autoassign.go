package fleet

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"drone-fleet/internal/common"
	"drone-fleet/internal/drone"
	domainerrors "drone-fleet/internal/errors"
)

type candidate struct {
	drone    *drone.Drone
	distance float64
}

// AutoAssign picks the nearest available drone able to carry the order and
// binds it through Assign. A candidate lost to a concurrent claim is
// skipped in favour of the next one.
func (c *Coordinator) AutoAssign(ctx context.Context, orderID uuid.UUID, operatorID string) (*Assignment, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.AutoAssign", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	o, err := c.store.Orders().Get(ctx, orderID)
	if err != nil {
		err = wrapStore(translate(err, func() error { return domainerrors.OrderNotFound(orderID.String()) }))
		recordError(span, err)
		return nil, err
	}
	if !o.Status.Assignable() {
		err := domainerrors.OrderNotAssignable(orderID.String(), string(o.Status))
		recordError(span, err)
		return nil, err
	}

	available, err := c.ListAvailable(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	lat, lng := o.PickupPoint()
	pickup := common.NewLocation(lat, lng)
	candidates := make([]candidate, 0, len(available))
	for _, d := range available {
		if !d.CanCarry(o.TotalWeight) {
			continue
		}
		candidates = append(candidates, candidate{drone: d, distance: common.HaversineDistance(pickup, d.Location())})
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if n := cmp.Compare(a.distance, b.distance); n != 0 {
			return n
		}
		return strings.Compare(a.drone.ID.String(), b.drone.ID.String())
	})
	span.SetAttributes(attribute.Int("fleet.candidates", len(candidates)))

	for _, cand := range candidates {
		res, err := c.Assign(ctx, orderID, cand.drone.ID, operatorID)
		if err == nil {
			return res, nil
		}
		// Orders are never deleted, so NOT_FOUND here means the drone was
		// removed after listing.
		if domainerrors.HasCode(err, domainerrors.ErrDroneUnavailable) || domainerrors.HasCode(err, domainerrors.ErrNotFound) {
			continue
		}
		recordError(span, err)
		return nil, err
	}

	if len(available) > 0 && len(candidates) == 0 {
		err = domainerrors.NoCapableDrone(o.TotalWeight)
	} else {
		err = domainerrors.NoDroneAvailable()
	}
	recordError(span, err)
	return nil, err
}
