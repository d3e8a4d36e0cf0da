package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-backend/internal/domain/coupon"
	"storefront-backend/internal/domain/product"
)

// ErrEmptyItems is returned when an order carries no line items.
var ErrEmptyItems = fmt.Errorf("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// CouponIneligibleError indicates the submitted coupon was rejected by the
// eligibility evaluation. Reason carries the machine-readable cause.
type CouponIneligibleError struct {
	Reason coupon.ReasonCode
}

func (e *CouponIneligibleError) Error() string {
	return fmt.Sprintf("coupon rejected: %s", e.Reason)
}

// CouponEngine is the slice of the coupon service checkout needs.
type CouponEngine interface {
	Check(ctx context.Context, code string, octx *coupon.OrderContext) (*coupon.CheckResult, error)
	Redeem(ctx context.Context, c *coupon.Coupon, customerID, orderID string, discountApplied decimal.Decimal) (*coupon.UsageRecord, error)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CustomerID string
	Items      []OrderItem
	CouponCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Service encapsulates order placement business logic.
type Service struct {
	products product.Repository
	coupons  CouponEngine
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons CouponEngine,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
	}
}

// PlaceOrder validates items, fetches products in a single batch, applies the
// coupon, persists the order, and records the redemption.
//
// The redemption is written strictly after the order row exists, so the
// ledger never references an order that was not stored. If the redemption
// loses a concurrent race on a usage cap, the order stands without the
// discount rather than failing checkout.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product was found.
	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
	}

	// Build the coupon view of the order and calculate the subtotal.
	lineItems := make([]coupon.LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		lineItems[i] = coupon.LineItem{
			ProductID:  item.ProductID,
			CategoryID: products[i].CategoryID,
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(products[i].Price.Mul(qty))
	}
	subtotal = subtotal.Round(2)

	// Evaluate the coupon when a code is provided. The verdict here is
	// optimistic: the usage caps are re-checked atomically at redemption.
	var applied *coupon.Coupon
	discount := decimal.Zero
	normalizedCode := ""
	if req.CouponCode != "" {
		isNew, err := s.isNewCustomer(ctx, req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("determine customer standing: %w", err)
		}

		check, err := s.coupons.Check(ctx, req.CouponCode, &coupon.OrderContext{
			Subtotal:      subtotal,
			Items:         lineItems,
			CustomerID:    req.CustomerID,
			IsNewCustomer: isNew,
		})
		if err != nil {
			if errors.Is(err, coupon.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("check coupon: %w", err)
		}
		if !check.Result.Valid {
			return nil, &CouponIneligibleError{Reason: check.Result.Reason}
		}

		applied = check.Coupon
		discount = check.Discount
		normalizedCode = check.Coupon.Code
	}

	// Total = subtotal - discount, floored at zero and rounded to 2 decimal places.
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Subtotal:   subtotal,
		Discount:   discount,
		Total:      total,
		CouponCode: normalizedCode,
		Status:     StatusCompleted,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if applied != nil {
		if _, err := s.coupons.Redeem(ctx, applied, req.CustomerID, o.ID, discount); err != nil {
			// The order is already durable. Strip the discount instead of
			// failing checkout after payment.
			zctx.From(ctx).Warn("coupon redemption failed, removing discount",
				zap.String("order_id", o.ID),
				zap.String("coupon_code", applied.Code),
				zap.Error(err),
			)
			if rmErr := s.orders.RemoveDiscount(ctx, o.ID); rmErr != nil {
				return nil, fmt.Errorf("remove discount after failed redemption: %w", rmErr)
			}
			o.Discount = decimal.Zero
			o.Total = subtotal
			o.CouponCode = ""
		}
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

func (s *Service) isNewCustomer(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	n, err := s.orders.CountCompletedByCustomer(ctx, customerID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
