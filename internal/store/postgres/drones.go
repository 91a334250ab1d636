package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/store"
)

const droneColumns = `id, name, model, status, battery_level, latitude, longitude, address, max_payload,
	range_km, speed, operator_id, flight_hours, is_active, last_maintenance, next_maintenance, created_at, updated_at`

type droneRepo struct {
	s    *Store
	ext  sqlx.ExtContext
	inTx bool
}

func (r *droneRepo) Get(ctx context.Context, id uuid.UUID) (*drone.Drone, error) {
	var d drone.Drone
	query := fmt.Sprintf(`SELECT %s FROM drones WHERE id = $1`, droneColumns)
	if err := sqlx.GetContext(ctx, r.ext, &d, query, id); err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *droneRepo) Create(ctx context.Context, d *drone.Drone) error {
	const query = `INSERT INTO drones (id, name, model, status, battery_level, latitude, longitude, address,
		max_payload, range_km, speed, operator_id, flight_hours, is_active, last_maintenance, next_maintenance,
		created_at, updated_at)
		VALUES (:id, :name, :model, :status, :battery_level, :latitude, :longitude, :address,
		:max_payload, :range_km, :speed, :operator_id, :flight_hours, :is_active, :last_maintenance,
		:next_maintenance, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, r.ext, query, d)
	return translate(err)
}

func (r *droneRepo) List(ctx context.Context, f drone.Filter) ([]*drone.Drone, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OperatorID != nil {
		args = append(args, *f.OperatorID)
		where = append(where, fmt.Sprintf("operator_id = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM drones`, droneColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	drones := []*drone.Drone{}
	if err := sqlx.SelectContext(ctx, r.ext, &drones, query, args...); err != nil {
		return nil, err
	}
	return drones, nil
}

func (r *droneRepo) Update(ctx context.Context, id uuid.UUID, cond store.DroneCond, mutate store.DroneMutation) (*drone.Drone, bool, error) {
	var (
		out     *drone.Drone
		matched bool
	)
	err := r.s.withTx(ctx, r.inTx, r.ext, func(ext sqlx.ExtContext) error {
		var d drone.Drone
		query := fmt.Sprintf(`SELECT %s FROM drones WHERE id = $1 FOR UPDATE`, droneColumns)
		if err := sqlx.GetContext(ctx, ext, &d, query, id); err != nil {
			return translate(err)
		}
		if cond != nil && !cond(&d) {
			out = &d
			return nil
		}

		mutate(&d)
		const update = `UPDATE drones SET name = :name, model = :model, status = :status,
			battery_level = :battery_level, latitude = :latitude, longitude = :longitude, address = :address,
			max_payload = :max_payload, range_km = :range_km, speed = :speed, operator_id = :operator_id,
			flight_hours = :flight_hours, is_active = :is_active, last_maintenance = :last_maintenance,
			next_maintenance = :next_maintenance, updated_at = :updated_at
			WHERE id = :id`
		if _, err := sqlx.NamedExecContext(ctx, ext, update, &d); err != nil {
			return translate(err)
		}
		out, matched = &d, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, matched, nil
}

func (r *droneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.ext.ExecContext(ctx, `DELETE FROM drones WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
