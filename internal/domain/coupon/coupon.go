// Package coupon implements the promotional code engine: code lookup and
// normalization, eligibility evaluation, discount calculation, and the
// redemption ledger contract.
package coupon

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the order subtotal,
	// optionally capped at MaxDiscountAmount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether dt is a known discount type.
func (dt DiscountType) Valid() bool {
	return dt == DiscountPercentage || dt == DiscountFixed
}

var (
	// ErrNotFound is returned when a code does not resolve to a live coupon.
	// Soft-deleted coupons report the same error, so removed codes are not
	// distinguishable from ones that never existed.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidInput is returned for malformed codes and negative subtotals.
	// These indicate a caller bug, not an ineligible coupon.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGlobalLimitReached is returned by RecordUsage when the conditional
	// increment finds the usage limit already exhausted at write time.
	ErrGlobalLimitReached = errors.New("coupon usage limit reached")
	// ErrPerCustomerLimitReached is returned by RecordUsage when the customer
	// has already redeemed the coupon the maximum number of times.
	ErrPerCustomerLimitReached = errors.New("per-customer usage limit reached")
	// ErrDuplicateRedemption is returned when a usage record already exists
	// for the same coupon and order.
	ErrDuplicateRedemption = errors.New("coupon already redeemed for this order")
)

// Coupon is a promotional rule: how much it discounts and under which
// conditions an order qualifies for it.
type Coupon struct {
	ID          uuid.UUID
	Code        string
	Description string

	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal

	MinOrderAmount decimal.Decimal

	// UsageLimit caps total redemptions; nil means unlimited.
	UsageLimit *int
	// UsagePerCustomer caps redemptions per customer; zero means unlimited.
	UsagePerCustomer int
	// CurrentUsage is a denormalized redemption counter maintained by the
	// ledger. The authoritative guard lives in the storage layer.
	CurrentUsage int

	// StartDate and EndDate bound the validity window, inclusive at both ends.
	StartDate time.Time
	EndDate   time.Time

	IsActive  bool
	DeletedAt *time.Time

	ApplicableCategories []string
	ExcludeCategories    []string
	ApplicableProducts   []string
	ExcludeProducts      []string

	RestrictToNewCustomers bool
	ApplicableCustomers    []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted reports whether the coupon has been soft-deleted.
func (c *Coupon) Deleted() bool {
	return c.DeletedAt != nil
}

// UsageRecord is one redemption: who used the coupon, on which order, when,
// and for how much. Records are append-only and never mutated or deleted.
type UsageRecord struct {
	ID              uuid.UUID
	CouponID        uuid.UUID
	CustomerID      string
	OrderID         string
	UsedAt          time.Time
	DiscountApplied decimal.Decimal
}

// CodePattern is the canonical code alphabet after normalization.
var CodePattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// NormalizeCode trims surrounding whitespace and upper-cases a submitted
// code. Codes that are empty after trimming or contain characters outside
// the canonical alphabet (upper-case letters, digits, hyphens) are rejected
// with ErrInvalidInput.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || !CodePattern.MatchString(code) {
		return "", errors.Wrapf(ErrInvalidInput, "malformed coupon code %q", raw)
	}
	return code, nil
}

// Repository is the engine's view of coupon storage: code resolution plus the
// redemption ledger. Implementations must make RecordUsage an atomic
// check-and-append, not a read-modify-write.
type Repository interface {
	// FindByCode resolves a canonical code to a live coupon.
	// Returns ErrNotFound for unknown and soft-deleted codes alike.
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// CountCustomerUsage returns the number of ledger entries for the given
	// coupon and customer.
	CountCustomerUsage(ctx context.Context, couponID uuid.UUID, customerID string) (int, error)

	// RecordUsage appends one ledger entry and increments the coupon's usage
	// counter as a single atomic unit. The global and per-customer caps are
	// re-checked at write time; a lost race surfaces as ErrGlobalLimitReached
	// or ErrPerCustomerLimitReached. An empty customerID is exempt from the
	// per-customer cap. A repeated append for the same order returns
	// ErrDuplicateRedemption.
	RecordUsage(ctx context.Context, couponID uuid.UUID, customerID, orderID string, discountApplied decimal.Decimal) (*UsageRecord, error)
}

// AdminRepository is the dashboard's view of coupon storage.
type AdminRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	// SoftDelete marks the coupon deleted. Coupons are never hard-deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListUsage(ctx context.Context, couponID uuid.UUID) ([]UsageRecord, error)
}
