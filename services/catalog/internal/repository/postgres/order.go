package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/jewelrycommerce/pkg/database"
	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository"
)

var _ repository.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, customer_name, customer_email, customer_phone, shipping_address, items, total_amount, status, payment_method, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db     database.DB
	tracer database.QueryTracer
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DB, tracer database.QueryTracer) *OrderRepository {
	return &OrderRepository{db: db, tracer: tracer}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ctx, done := r.tracer.Trace(ctx, "orders.create", query)
	defer func() { done(err) }()

	_, err = r.db.Exec(ctx, query,
		o.ID,
		o.CustomerName,
		o.CustomerEmail,
		o.CustomerPhone,
		o.ShippingAddress,
		itemsJSON,
		o.TotalAmount,
		o.Status,
		o.PaymentMethod,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "id", o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ctx, done := r.tracer.Trace(ctx, "orders.get_by_id", query)
	defer func() { done(err) }()

	o, err = scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

// List returns orders newest first with the total count.
func (r *OrderRepository) List(ctx context.Context, limit, offset int) (orders []domain.Order, total int, err error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	ctx, done := r.tracer.Trace(ctx, "orders.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, limit, max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o         domain.Order
			itemsJSON []byte
		)
		if err := rows.Scan(append(orderDest(&o, &itemsJSON), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if err := unmarshalItems(itemsJSON, &o); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus sets an order's status and returns the updated row.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) (o *domain.Order, err error) {
	query := `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + orderColumns

	ctx, done := r.tracer.Trace(ctx, "orders.update_status", query)
	defer func() { done(err) }()

	o, err = scanOrder(r.db.QueryRow(ctx, query, id, status, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

func orderDest(o *domain.Order, itemsJSON *[]byte) []any {
	return []any{
		&o.ID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.ShippingAddress,
		itemsJSON,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
	)
	if err := row.Scan(orderDest(&o, &itemsJSON)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := unmarshalItems(itemsJSON, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func unmarshalItems(data []byte, o *domain.Order) error {
	if len(data) == 0 {
		o.Items = []domain.OrderItem{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Items); err != nil {
		return fmt.Errorf("unmarshal order items: %w", err)
	}
	return nil
}
