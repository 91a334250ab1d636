package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"drone-fleet/internal/order"
	"drone-fleet/internal/store"
)

const orderColumns = `id, tracking_number, customer_id, customer_name, customer_email, customer_phone, status,
	priority, items, total_weight, estimated_value, special_instructions, pickup_location, delivery_location,
	drone_id, operator_id, delivery_staff_id, requested_delivery_time, actual_pickup_time, actual_delivery_time,
	price, payment_status, payment_method, payment_id, current_location, created_at, updated_at, completed_at,
	cancelled_at, cancellation_reason`

type orderRow struct {
	ID                    uuid.UUID                   `db:"id"`
	TrackingNumber        string                      `db:"tracking_number"`
	CustomerID            string                      `db:"customer_id"`
	CustomerName          string                      `db:"customer_name"`
	CustomerEmail         string                      `db:"customer_email"`
	CustomerPhone         string                      `db:"customer_phone"`
	Status                order.Status                `db:"status"`
	Priority              order.Priority              `db:"priority"`
	Items                 jsonColumn[[]order.Item]    `db:"items"`
	TotalWeight           float64                     `db:"total_weight"`
	EstimatedValue        float64                     `db:"estimated_value"`
	SpecialInstructions   string                      `db:"special_instructions"`
	PickupLocation        jsonColumn[order.Address]   `db:"pickup_location"`
	DeliveryLocation      jsonColumn[order.Address]   `db:"delivery_location"`
	DroneID               *uuid.UUID                  `db:"drone_id"`
	OperatorID            *string                     `db:"operator_id"`
	DeliveryStaffID       *string                     `db:"delivery_staff_id"`
	RequestedDeliveryTime *time.Time                  `db:"requested_delivery_time"`
	ActualPickupTime      *time.Time                  `db:"actual_pickup_time"`
	ActualDeliveryTime    *time.Time                  `db:"actual_delivery_time"`
	Price                 float64                     `db:"price"`
	PaymentStatus         order.PaymentStatus         `db:"payment_status"`
	PaymentMethod         *order.PaymentMethod        `db:"payment_method"`
	PaymentID             *string                     `db:"payment_id"`
	CurrentLocation       jsonColumn[*order.Position] `db:"current_location"`
	CreatedAt             time.Time                   `db:"created_at"`
	UpdatedAt             time.Time                   `db:"updated_at"`
	CompletedAt           *time.Time                  `db:"completed_at"`
	CancelledAt           *time.Time                  `db:"cancelled_at"`
	CancellationReason    *string                     `db:"cancellation_reason"`
}

func toRow(o *order.Order) *orderRow {
	return &orderRow{
		ID:                    o.ID,
		TrackingNumber:        o.TrackingNumber,
		CustomerID:            o.CustomerID,
		CustomerName:          o.CustomerName,
		CustomerEmail:         o.CustomerEmail,
		CustomerPhone:         o.CustomerPhone,
		Status:                o.Status,
		Priority:              o.Priority,
		Items:                 jsonColumn[[]order.Item]{V: o.Items},
		TotalWeight:           o.TotalWeight,
		EstimatedValue:        o.EstimatedValue,
		SpecialInstructions:   o.SpecialInstructions,
		PickupLocation:        jsonColumn[order.Address]{V: o.PickupLocation},
		DeliveryLocation:      jsonColumn[order.Address]{V: o.DeliveryLocation},
		DroneID:               o.DroneID,
		OperatorID:            o.OperatorID,
		DeliveryStaffID:       o.DeliveryStaffID,
		RequestedDeliveryTime: o.RequestedDeliveryTime,
		ActualPickupTime:      o.ActualPickupTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		Price:                 o.Price,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		PaymentID:             o.PaymentID,
		CurrentLocation:       jsonColumn[*order.Position]{V: o.CurrentLocation},
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		CompletedAt:           o.CompletedAt,
		CancelledAt:           o.CancelledAt,
		CancellationReason:    o.CancellationReason,
	}
}

func (r *orderRow) toOrder() *order.Order {
	items := r.Items.V
	if items == nil {
		items = []order.Item{}
	}
	return &order.Order{
		ID:                    r.ID,
		TrackingNumber:        r.TrackingNumber,
		CustomerID:            r.CustomerID,
		CustomerName:          r.CustomerName,
		CustomerEmail:         r.CustomerEmail,
		CustomerPhone:         r.CustomerPhone,
		Status:                r.Status,
		Priority:              r.Priority,
		Items:                 items,
		TotalWeight:           r.TotalWeight,
		EstimatedValue:        r.EstimatedValue,
		SpecialInstructions:   r.SpecialInstructions,
		PickupLocation:        r.PickupLocation.V,
		DeliveryLocation:      r.DeliveryLocation.V,
		DroneID:               r.DroneID,
		OperatorID:            r.OperatorID,
		DeliveryStaffID:       r.DeliveryStaffID,
		RequestedDeliveryTime: r.RequestedDeliveryTime,
		ActualPickupTime:      r.ActualPickupTime,
		ActualDeliveryTime:    r.ActualDeliveryTime,
		Price:                 r.Price,
		PaymentStatus:         r.PaymentStatus,
		PaymentMethod:         r.PaymentMethod,
		PaymentID:             r.PaymentID,
		CurrentLocation:       r.CurrentLocation.V,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		CompletedAt:           r.CompletedAt,
		CancelledAt:           r.CancelledAt,
		CancellationReason:    r.CancellationReason,
	}
}

type orderRepo struct {
	s    *Store
	ext  sqlx.ExtContext
	inTx bool
}

func (r *orderRepo) getOne(ctx context.Context, ext sqlx.ExtContext, where string, arg any) (*order.Order, error) {
	var row orderRow
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s`, orderColumns, where)
	if err := sqlx.GetContext(ctx, ext, &row, query, arg); err != nil {
		return nil, translate(err)
	}
	return row.toOrder(), nil
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getOne(ctx, r.ext, "id = $1", id)
}

func (r *orderRepo) GetByTrackingNumber(ctx context.Context, tracking string) (*order.Order, error) {
	return r.getOne(ctx, r.ext, "tracking_number = $1", tracking)
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	const query = `INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :tracking_number, :customer_id, :customer_name, :customer_email, :customer_phone, :status,
		:priority, :items, :total_weight, :estimated_value, :special_instructions, :pickup_location,
		:delivery_location, :drone_id, :operator_id, :delivery_staff_id, :requested_delivery_time,
		:actual_pickup_time, :actual_delivery_time, :price, :payment_status, :payment_method, :payment_id,
		:current_location, :created_at, :updated_at, :completed_at, :cancelled_at, :cancellation_reason)`

	_, err := sqlx.NamedExecContext(ctx, r.ext, query, toRow(o))
	return translate(err)
}

func (r *orderRepo) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if len(f.Status) > 0 {
		statuses := make([]string, len(f.Status))
		for i, s := range f.Status {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.DroneID != nil {
		add("drone_id = $%d", *f.DroneID)
	}
	if f.OperatorID != nil {
		add("operator_id = $%d", *f.OperatorID)
	}
	if f.StaffID != nil {
		add("delivery_staff_id = $%d", *f.StaffID)
	}
	if f.DateFrom != nil {
		add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("created_at <= $%d", *f.DateTo)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders`, orderColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, err
	}
	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].toOrder()
	}
	return orders, nil
}

func (r *orderRepo) Update(ctx context.Context, id uuid.UUID, cond store.OrderCond, mutate store.OrderMutation) (*order.Order, bool, error) {
	var (
		out     *order.Order
		matched bool
	)
	err := r.s.withTx(ctx, r.inTx, r.ext, func(ext sqlx.ExtContext) error {
		o, err := r.getOne(ctx, ext, "id = $1 FOR UPDATE", id)
		if err != nil {
			return err
		}
		if cond != nil && !cond(o) {
			out = o
			return nil
		}

		mutate(o)
		const update = `UPDATE orders SET status = :status, priority = :priority,
			special_instructions = :special_instructions, drone_id = :drone_id, operator_id = :operator_id,
			delivery_staff_id = :delivery_staff_id, requested_delivery_time = :requested_delivery_time,
			actual_pickup_time = :actual_pickup_time, actual_delivery_time = :actual_delivery_time,
			payment_status = :payment_status, payment_method = :payment_method, payment_id = :payment_id,
			current_location = :current_location, updated_at = :updated_at, completed_at = :completed_at,
			cancelled_at = :cancelled_at, cancellation_reason = :cancellation_reason
			WHERE id = :id`
		if _, err := sqlx.NamedExecContext(ctx, ext, update, toRow(o)); err != nil {
			return translate(err)
		}
		out, matched = o, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, matched, nil
}

func (r *orderRepo) CountBoundTo(ctx context.Context, droneID uuid.UUID) (int, error) {
	var n int
	const query = `SELECT count(*) FROM orders
		WHERE drone_id = $1 AND status NOT IN ('delivered', 'cancelled', 'failed')`
	if err := sqlx.GetContext(ctx, r.ext, &n, query, droneID); err != nil {
		return 0, err
	}
	return n, nil
}
