package fleet

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"drone-fleet/internal/drone"
	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/pkg/validation"
	"drone-fleet/internal/store"
)

// Register adds a drone to the fleet: available, fully charged, active.
func (c *Coordinator) Register(ctx context.Context, req drone.RegisterDroneRequest) (*drone.Drone, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := req.Location.Validate(); err != nil {
		return nil, domainerrors.NewValidation(err.Error())
	}

	d := drone.New(req)
	d.CreatedAt = c.now().UTC()
	d.UpdatedAt = d.CreatedAt
	if err := c.store.Drones().Create(ctx, d); err != nil {
		return nil, domainerrors.NewInternal("failed to register drone", err)
	}
	return d, nil
}

func (c *Coordinator) Get(ctx context.Context, droneID uuid.UUID) (*drone.Drone, error) {
	d, err := c.store.Drones().Get(ctx, droneID)
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	return d, nil
}

func (c *Coordinator) List(ctx context.Context, f drone.Filter) ([]*drone.Drone, error) {
	drones, err := c.store.Drones().List(ctx, f)
	if err != nil {
		return nil, domainerrors.NewInternal("failed to list drones", err)
	}
	return drones, nil
}

// UpdateSpecs corrects the registered specs. A drone in flight keeps its
// current order even if its new payload limit would not cover it.
func (c *Coordinator) UpdateSpecs(ctx context.Context, droneID uuid.UUID, req drone.UpdateDroneRequest) (*drone.Drone, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	d, _, err := c.store.Drones().Update(ctx, droneID, nil, func(d *drone.Drone) {
		d.ApplySpecs(req, now)
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	return d, nil
}

// SetMaintenanceStatus moves a drone between the non-flying statuses. A
// drone in transit is refused; only Release takes it out of that state.
func (c *Coordinator) SetMaintenanceStatus(ctx context.Context, droneID uuid.UUID, next drone.Status) (*drone.Drone, error) {
	if !next.IsMaintenance() {
		return nil, domainerrors.DroneInvalidTransition("*", string(next))
	}

	now := c.now().UTC()
	d, ok, err := c.store.Drones().Update(ctx, droneID, func(d *drone.Drone) bool {
		return d.Status != drone.StatusInTransit
	}, func(d *drone.Drone) {
		d.Status = next
		d.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	if !ok {
		return nil, domainerrors.DroneInvalidTransition(string(d.Status), string(next))
	}
	return d, nil
}

// SetActive toggles whether the drone may be claimed. It does not touch
// status, so a drone in flight finishes its delivery.
func (c *Coordinator) SetActive(ctx context.Context, droneID uuid.UUID, active bool) (*drone.Drone, error) {
	now := c.now().UTC()
	d, _, err := c.store.Drones().Update(ctx, droneID, nil, func(d *drone.Drone) {
		d.IsActive = active
		d.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	return d, nil
}

func (c *Coordinator) RecordMaintenance(ctx context.Context, droneID uuid.UUID, rec drone.MaintenanceRecord) (*drone.Drone, error) {
	if rec.FlightHours != nil && *rec.FlightHours < 0 {
		return nil, domainerrors.NewValidation("flightHours must not be negative")
	}
	performed := rec.PerformedAt
	if performed.IsZero() {
		performed = c.now()
	}
	performed = performed.UTC()

	now := c.now().UTC()
	d, ok, err := c.store.Drones().Update(ctx, droneID, func(d *drone.Drone) bool {
		return d.Status != drone.StatusInTransit
	}, func(d *drone.Drone) {
		d.LastMaintenance = &performed
		if rec.NextMaintenance != nil {
			next := rec.NextMaintenance.UTC()
			d.NextMaintenance = &next
		}
		if rec.FlightHours != nil {
			d.FlightHours = *rec.FlightHours
		}
		d.UpdatedAt = now
	})
	if err != nil {
		return nil, wrapStore(translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) }))
	}
	if !ok {
		return nil, domainerrors.NewConflict("drone " + droneID.String() + " is in transit")
	}
	return d, nil
}

// Delete removes a drone no active order references.
func (c *Coordinator) Delete(ctx context.Context, droneID uuid.UUID) error {
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		if err := lockUnbound(ctx, tx, droneID); err != nil {
			return err
		}
		if err := tx.Drones().Delete(ctx, droneID); err != nil {
			return translate(err, func() error { return domainerrors.DroneNotFound(droneID.String()) })
		}
		return nil
	})
	if err != nil {
		return wrapStore(err)
	}

	if c.cache != nil {
		if err := c.cache.Delete(ctx, droneID.String()); err != nil {
			c.logger.WarnContext(ctx, "drone location cache delete failed",
				slog.String("drone_id", droneID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
