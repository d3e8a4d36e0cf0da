package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CheckResult bundles the looked-up coupon, the eligibility verdict, and the
// discount it would grant. Discount is zero when the verdict is negative.
type CheckResult struct {
	Coupon   *Coupon
	Result   Result
	Discount decimal.Decimal
}

// Service is the coupon engine facade: normalize, look up, evaluate,
// calculate, redeem.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Lookup normalizes a raw code and resolves it to a live coupon.
func (s *Service) Lookup(ctx context.Context, rawCode string) (*Coupon, error) {
	code, err := NormalizeCode(rawCode)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	return c, nil
}

// Check evaluates a raw code against an order snapshot and computes the
// discount it would grant. An unknown code is not an error: it yields a
// negative Result with COUPON_NOT_FOUND, so callers can preview codes
// without special-casing lookups. Malformed codes and negative subtotals
// return ErrInvalidInput.
//
// Check never mutates state and may be called any number of times with the
// same inputs; redemption is a separate step (Redeem).
func (s *Service) Check(ctx context.Context, rawCode string, octx *OrderContext) (*CheckResult, error) {
	if octx.Subtotal.IsNegative() {
		return nil, errors.Wrap(ErrInvalidInput, "negative subtotal")
	}

	c, err := s.Lookup(ctx, rawCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &CheckResult{Result: rejected(ReasonNotFound), Discount: decimal.Zero}, nil
		}
		return nil, err
	}

	customerUsage := 0
	if octx.CustomerID != "" && c.UsagePerCustomer > 0 {
		customerUsage, err = s.repo.CountCustomerUsage(ctx, c.ID, octx.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "count customer usage")
		}
	}

	res := Evaluate(c, octx, customerUsage, s.now())
	out := &CheckResult{Coupon: c, Result: res, Discount: decimal.Zero}
	if res.Valid {
		out.Discount = Calculate(c, octx.Subtotal)
	}
	return out, nil
}

// Redeem appends a redemption to the ledger. It is the only mutating
// operation in the engine and must run after the order it belongs to is
// durably stored. The storage layer re-checks both usage caps atomically,
// so a Check that passed moments earlier can still lose here under
// concurrency (ErrGlobalLimitReached, ErrPerCustomerLimitReached).
func (s *Service) Redeem(ctx context.Context, c *Coupon, customerID, orderID string, discountApplied decimal.Decimal) (*UsageRecord, error) {
	rec, err := s.repo.RecordUsage(ctx, c.ID, customerID, orderID, discountApplied)
	if err != nil {
		return nil, errors.Wrapf(err, "record usage of %q", c.Code)
	}
	return rec, nil
}
