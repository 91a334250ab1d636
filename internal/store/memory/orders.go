package memory

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"

	"drone-fleet/internal/order"
	"drone-fleet/internal/store"
)

type orderRepo struct {
	s  *Store
	tx *txn
}

func (r *orderRepo) Get(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if r.tx != nil {
		if c, ok := r.tx.orders[id]; ok {
			return c.val.Clone(), nil
		}
	}
	o, ok := r.s.orders.load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *orderRepo) GetByTrackingNumber(ctx context.Context, tracking string) (*order.Order, error) {
	r.s.trackMu.Lock()
	id, ok := r.s.tracking[tracking]
	r.s.trackMu.Unlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return autocommit(ctx, r.s, r.tx, func(t *txn) error {
		s := t.s
		s.trackMu.Lock()
		if _, taken := s.tracking[o.TrackingNumber]; taken {
			s.trackMu.Unlock()
			return store.ErrDuplicate
		}
		s.tracking[o.TrackingNumber] = o.ID
		s.trackMu.Unlock()
		t.reserved = append(t.reserved, o.TrackingNumber)

		return insert(t, s.orders, t.orders, o.ID, o.Clone())
	})
}

func (r *orderRepo) List(_ context.Context, f order.Filter) ([]*order.Order, error) {
	out := make([]*order.Order, 0)
	for _, o := range r.visible() {
		if store.MatchOrder(f, o) {
			out = append(out, o.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (r *orderRepo) Update(ctx context.Context, id uuid.UUID, cond store.OrderCond, mutate store.OrderMutation) (*order.Order, bool, error) {
	var (
		out     *order.Order
		matched bool
	)
	err := autocommit(ctx, r.s, r.tx, func(t *txn) error {
		c, err := lock(ctx, t, t.s.orders, t.orders, id, (*order.Order).Clone)
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

func (r *orderRepo) CountBoundTo(_ context.Context, droneID uuid.UUID) (int, error) {
	n := 0
	for _, o := range r.visible() {
		if o.DroneID != nil && *o.DroneID == droneID && !o.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (r *orderRepo) visible() map[uuid.UUID]*order.Order {
	if r.tx != nil {
		return overlay(r.s.orders, r.tx.orders)
	}
	return r.s.orders.committed()
}
