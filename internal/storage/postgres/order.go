package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, items, subtotal, discount, total, coupon_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	countCompletedOrdersSQL = `SELECT COUNT(*) FROM orders
		WHERE customer_id = $1 AND status = 'completed'`

	removeDiscountSQL = `UPDATE orders
		SET discount = 0, total = subtotal, coupon_code = ''
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.CustomerID, itemsJSON, o.Subtotal, o.Discount, o.Total, o.CouponCode, o.Status,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// CountCompletedByCustomer returns the number of completed orders the
// customer has placed.
func (r *OrderRepository) CountCompletedByCustomer(ctx context.Context, customerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countCompletedOrdersSQL, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orders for customer %q: %w", customerID, err)
	}
	return n, nil
}

// RemoveDiscount reverts an order to its undiscounted totals.
func (r *OrderRepository) RemoveDiscount(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx, removeDiscountSQL, orderID)
	if err != nil {
		return fmt.Errorf("removing discount from order %q: %w", orderID, err)
	}
	return nil
}
