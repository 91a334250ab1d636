// Package memory is an in-process implementation of store.Store.
//
// Each record has its own lock. A transaction takes the lock of every
// record it touches and keeps it until commit or rollback; writes are
// staged on private copies and published on commit. Readers outside the
// transaction see only committed values and never block.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/order"
	"drone-fleet/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	drones *table[drone.Drone]
	orders *table[order.Order]

	trackMu  sync.Mutex
	tracking map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		drones:   newTable[drone.Drone](),
		orders:   newTable[order.Order](),
		tracking: make(map[string]uuid.UUID),
	}
}

func (s *Store) Drones() store.DroneRepository { return &droneRepo{s: s} }

func (s *Store) Orders() store.OrderRepository { return &orderRepo{s: s} }

func (s *Store) Close() error { return nil }

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTxn(s)
	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()

	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	committed = true
	return nil
}

// ------------------------------------------------------------------------------------------------
// records

type entry[T any] struct {
	sem chan struct{}
	cur atomic.Pointer[T] // nil until the creating transaction commits
}

func newEntry[T any]() *entry[T] {
	return &entry[T]{sem: make(chan struct{}, 1)}
}

func (e *entry[T]) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry[T]) release() { <-e.sem }

// table guards only the id -> entry map; record data is guarded by the
// entry lock.
type table[T any] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*entry[T]
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]*entry[T])}
}

func (t *table[T]) get(id uuid.UUID) (*entry[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.rows[id]
	return e, ok
}

func (t *table[T]) load(id uuid.UUID) (*T, bool) {
	e, ok := t.get(id)
	if !ok {
		return nil, false
	}
	v := e.cur.Load()
	return v, v != nil
}

// reserve inserts a fresh entry for id. It reports false if id exists.
func (t *table[T]) reserve(id uuid.UUID) (*entry[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; ok {
		return nil, false
	}
	e := newEntry[T]()
	t.rows[id] = e
	return e, true
}

func (t *table[T]) drop(id uuid.UUID, e *entry[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rows[id] == e {
		delete(t.rows, id)
	}
}

// committed returns the published value of every row.
func (t *table[T]) committed() map[uuid.UUID]*T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[uuid.UUID]*T, len(t.rows))
	for id, e := range t.rows {
		if v := e.cur.Load(); v != nil {
			out[id] = v
		}
	}
	return out
}

// ------------------------------------------------------------------------------------------------
// transactions

type change[T any] struct {
	e       *entry[T]
	val     *T // nil once deleted
	created bool
}

type txn struct {
	s        *Store
	drones   map[uuid.UUID]*change[drone.Drone]
	orders   map[uuid.UUID]*change[order.Order]
	held     []func()
	reserved []string
}

func newTxn(s *Store) *txn {
	return &txn{
		s:      s,
		drones: make(map[uuid.UUID]*change[drone.Drone]),
		orders: make(map[uuid.UUID]*change[order.Order]),
	}
}

func (t *txn) Drones() store.DroneRepository { return &droneRepo{s: t.s, tx: t} }

func (t *txn) Orders() store.OrderRepository { return &orderRepo{s: t.s, tx: t} }

// lock stages id in changes, taking its entry lock on first touch. The
// lock is held until the transaction ends.
func lock[T any](ctx context.Context, t *txn, tbl *table[T], changes map[uuid.UUID]*change[T], id uuid.UUID, clone func(*T) *T) (*change[T], error) {
	if c, ok := changes[id]; ok {
		if c.val == nil {
			return nil, store.ErrNotFound
		}
		return c, nil
	}
	e, ok := tbl.get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	cur := e.cur.Load()
	if cur == nil {
		e.release()
		return nil, store.ErrNotFound
	}
	t.held = append(t.held, e.release)
	c := &change[T]{e: e, val: clone(cur)}
	changes[id] = c
	return c, nil
}

// insert reserves a new row owned by the transaction.
func insert[T any](t *txn, tbl *table[T], changes map[uuid.UUID]*change[T], id uuid.UUID, val *T) error {
	e, ok := tbl.reserve(id)
	if !ok {
		return store.ErrDuplicate
	}
	e.sem <- struct{}{}
	t.held = append(t.held, e.release)
	changes[id] = &change[T]{e: e, val: val, created: true}
	return nil
}

func publish[T any](tbl *table[T], changes map[uuid.UUID]*change[T]) {
	for id, c := range changes {
		if c.val == nil {
			c.e.cur.Store(nil)
			tbl.drop(id, c.e)
			continue
		}
		c.e.cur.Store(c.val)
	}
}

func discard[T any](tbl *table[T], changes map[uuid.UUID]*change[T]) {
	for id, c := range changes {
		if c.created {
			tbl.drop(id, c.e)
		}
	}
}

func (t *txn) commit() {
	publish(t.s.drones, t.drones)
	publish(t.s.orders, t.orders)
	t.unlock()
}

func (t *txn) rollback() {
	discard(t.s.drones, t.drones)
	discard(t.s.orders, t.orders)
	if len(t.reserved) > 0 {
		t.s.trackMu.Lock()
		for _, tn := range t.reserved {
			delete(t.s.tracking, tn)
		}
		t.s.trackMu.Unlock()
	}
	t.unlock()
}

func (t *txn) unlock() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i]()
	}
	t.held = nil
}

// overlay merges the committed rows with this transaction's staged ones.
func overlay[T any](tbl *table[T], changes map[uuid.UUID]*change[T]) map[uuid.UUID]*T {
	rows := tbl.committed()
	for id, c := range changes {
		if c.val == nil {
			delete(rows, id)
			continue
		}
		rows[id] = c.val
	}
	return rows
}

// autocommit runs fn in its own transaction when the repository is not
// bound to one.
func autocommit(ctx context.Context, s *Store, tx *txn, fn func(t *txn) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.InTx(ctx, func(st store.Tx) error {
		return fn(st.(*txn))
	})
}
