// Package order implements checkout: item validation, pricing, coupon
// application, and persistence of completed orders.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status values for stored orders. Checkout writes orders as completed;
// cancellations flip the status but never touch the coupon ledger.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Order represents a customer order with pricing and discount details.
type Order struct {
	ID         string
	CustomerID string
	Items      []OrderItem
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
	Status     string
	CreatedAt  time.Time
}

// OrderItem represents a single line item in an order.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	// CountCompletedByCustomer reports how many completed orders the customer
	// has. Zero means the customer qualifies as new.
	CountCompletedByCustomer(ctx context.Context, customerID string) (int, error)
	// RemoveDiscount strips the coupon from a stored order: discount becomes
	// zero, total reverts to the subtotal, the code is cleared.
	RemoveDiscount(ctx context.Context, orderID string) error
}
