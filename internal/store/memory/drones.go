package memory

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/store"
)

type droneRepo struct {
	s  *Store
	tx *txn // nil outside a transaction
}

func (r *droneRepo) Get(_ context.Context, id uuid.UUID) (*drone.Drone, error) {
	if r.tx != nil {
		if c, ok := r.tx.drones[id]; ok {
			if c.val == nil {
				return nil, store.ErrNotFound
			}
			return c.val.Clone(), nil
		}
	}
	d, ok := r.s.drones.load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return d.Clone(), nil
}

func (r *droneRepo) Create(ctx context.Context, d *drone.Drone) error {
	return autocommit(ctx, r.s, r.tx, func(t *txn) error {
		return insert(t, t.s.drones, t.drones, d.ID, d.Clone())
	})
}

func (r *droneRepo) List(_ context.Context, f drone.Filter) ([]*drone.Drone, error) {
	var rows map[uuid.UUID]*drone.Drone
	if r.tx != nil {
		rows = overlay(r.s.drones, r.tx.drones)
	} else {
		rows = r.s.drones.committed()
	}

	out := make([]*drone.Drone, 0, len(rows))
	for _, d := range rows {
		if store.MatchDrone(f, d) {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *drone.Drone) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (r *droneRepo) Update(ctx context.Context, id uuid.UUID, cond store.DroneCond, mutate store.DroneMutation) (*drone.Drone, bool, error) {
	var (
		out     *drone.Drone
		matched bool
	)
	err := autocommit(ctx, r.s, r.tx, func(t *txn) error {
		c, err := lock(ctx, t, t.s.drones, t.drones, id, (*drone.Drone).Clone)
		if err != nil {
			return err
		}
		if cond != nil && !cond(c.val) {
			out = c.val.Clone()
			return nil
		}
		mutate(c.val)
		matched = true
		out = c.val.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, matched, nil
}

func (r *droneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return autocommit(ctx, r.s, r.tx, func(t *txn) error {
		c, err := lock(ctx, t, t.s.drones, t.drones, id, (*drone.Drone).Clone)
		if err != nil {
			return err
		}
		c.val = nil
		return nil
	})
}
