// Package postgres implements store.Store on PostgreSQL via sqlx.
//
// Conditional updates lock the row with SELECT ... FOR UPDATE, evaluate
// the condition and write the mutated row back in the same transaction,
// so concurrent claimers of one drone serialize on its row lock.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"drone-fleet/internal/store"
)

const uniqueViolation = pq.ErrorCode("23505")

var _ store.Store = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Drones() store.DroneRepository { return &droneRepo{s: s, ext: s.db} }

func (s *Store) Orders() store.OrderRepository { return &orderRepo{s: s, ext: s.db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txn{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txn struct {
	s  *Store
	tx *sqlx.Tx
}

func (t *txn) Drones() store.DroneRepository { return &droneRepo{s: t.s, ext: t.tx, inTx: true} }

func (t *txn) Orders() store.OrderRepository { return &orderRepo{s: t.s, ext: t.tx, inTx: true} }

// withTx runs fn on ext when it already is a transaction, otherwise in a
// fresh one. Row locks need a transaction to be held.
func (s *Store) withTx(ctx context.Context, inTx bool, ext sqlx.ExtContext, fn func(ext sqlx.ExtContext) error) error {
	if inTx {
		return fn(ext)
	}
	return s.InTx(ctx, func(tx store.Tx) error {
		return fn(tx.(*txn).tx)
	})
}

// ------------------------------------------------------------------------------------------------

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// jsonColumn stores a value as JSONB.
type jsonColumn[T any] struct {
	V T
}

func (j jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func (j *jsonColumn[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.V)
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	}
	return fmt.Errorf("jsonColumn: unsupported source %T", src)
}
