package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domain/coupon"
)

const couponColumns = `id, code, description, discount_type, discount_value, max_discount_amount,
	min_order_amount, usage_limit, usage_per_customer, current_usage,
	start_date, end_date, is_active, deleted_at,
	applicable_categories, exclude_categories, applicable_products, exclude_products,
	applicable_customers, restrict_to_new_customers, created_at, updated_at`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1) AND deleted_at IS NULL`

	getCouponByIDSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE id = $1 AND deleted_at IS NULL`

	listCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE deleted_at IS NULL ORDER BY created_at DESC`

	insertCouponSQL = `INSERT INTO coupons (
		id, code, description, discount_type, discount_value, max_discount_amount,
		min_order_amount, usage_limit, usage_per_customer,
		start_date, end_date, is_active,
		applicable_categories, exclude_categories, applicable_products, exclude_products,
		applicable_customers, restrict_to_new_customers
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING current_usage, created_at, updated_at`

	updateCouponSQL = `UPDATE coupons SET
		description = $2, discount_type = $3, discount_value = $4, max_discount_amount = $5,
		min_order_amount = $6, usage_limit = $7, usage_per_customer = $8,
		start_date = $9, end_date = $10, is_active = $11,
		applicable_categories = $12, exclude_categories = $13,
		applicable_products = $14, exclude_products = $15,
		applicable_customers = $16, restrict_to_new_customers = $17,
		updated_at = now()
	WHERE id = $1 AND deleted_at IS NULL`

	softDeleteCouponSQL = `UPDATE coupons SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	// The WHERE clause is the global cap guard: the increment succeeds only
	// while there is headroom, and concurrent transactions serialize on the
	// row lock this UPDATE takes.
	incrementUsageSQL = `UPDATE coupons
		SET current_usage = current_usage + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
			AND (usage_limit IS NULL OR current_usage < usage_limit)
		RETURNING usage_per_customer`

	couponExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM coupons WHERE id = $1 AND deleted_at IS NULL)`

	countCustomerUsageSQL = `SELECT COUNT(*) FROM coupon_usage
		WHERE coupon_id = $1 AND customer_id = $2`

	insertUsageSQL = `INSERT INTO coupon_usage (id, coupon_id, customer_id, order_id, discount_applied)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING used_at`

	listUsageSQL = `SELECT id, coupon_id, customer_id, order_id, used_at, discount_applied
		FROM coupon_usage WHERE coupon_id = $1 ORDER BY used_at DESC`
)

var (
	_ coupon.Repository      = (*CouponRepository)(nil)
	_ coupon.AdminRepository = (*CouponRepository)(nil)
)

// CouponRepository implements coupon.Repository and coupon.AdminRepository
// backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a live coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no live coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// GetByID returns a live coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %s: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %s: %w", id, err)
	}
	return &c, nil
}

// List returns all live coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create inserts a new coupon. A code collision with another live coupon
// returns coupon.ErrInvalidInput.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MaxDiscountAmount,
		c.MinOrderAmount, c.UsageLimit, c.UsagePerCustomer,
		c.StartDate, c.EndDate, c.IsActive,
		c.ApplicableCategories, c.ExcludeCategories, c.ApplicableProducts, c.ExcludeProducts,
		c.ApplicableCustomers, c.RestrictToNewCustomers,
	).Scan(&c.CurrentUsage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errors.Wrapf(coupon.ErrInvalidInput, "coupon code %q already exists", c.Code)
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update rewrites a coupon's rule fields. The code and usage counter are
// immutable through this path. Returns coupon.ErrNotFound when the coupon
// does not exist or was deleted.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Description, c.DiscountType, c.DiscountValue, c.MaxDiscountAmount,
		c.MinOrderAmount, c.UsageLimit, c.UsagePerCustomer,
		c.StartDate, c.EndDate, c.IsActive,
		c.ApplicableCategories, c.ExcludeCategories,
		c.ApplicableProducts, c.ExcludeProducts,
		c.ApplicableCustomers, c.RestrictToNewCustomers,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SoftDelete marks a coupon deleted. Usage history stays intact.
func (r *CouponRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, softDeleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// CountCustomerUsage returns the number of ledger entries for the coupon and
// customer pair.
func (r *CouponRepository) CountCustomerUsage(ctx context.Context, couponID uuid.UUID, customerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countCustomerUsageSQL, couponID, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage of coupon %s by %q: %w", couponID, customerID, err)
	}
	return n, nil
}

// RecordUsage appends a ledger entry in a single transaction.
//
// The conditional increment runs first: it takes the coupon's row lock and
// fails when the global cap is exhausted, which serializes all concurrent
// redemptions of the same coupon. The per-customer count is then re-read
// under that lock, so two simultaneous orders by one customer cannot both
// pass a limit of one. Anonymous redemptions carry an empty customer id and
// are exempt from the per-customer cap, matching the evaluation step.
func (r *CouponRepository) RecordUsage(ctx context.Context, couponID uuid.UUID, customerID, orderID string, discountApplied decimal.Decimal) (*coupon.UsageRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning redemption tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var perCustomer int
	err = tx.QueryRow(ctx, incrementUsageSQL, couponID).Scan(&perCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows means either the coupon is gone or the cap is full.
			var exists bool
			if exErr := tx.QueryRow(ctx, couponExistsSQL, couponID).Scan(&exists); exErr != nil {
				return nil, fmt.Errorf("checking coupon %s: %w", couponID, exErr)
			}
			if !exists {
				return nil, coupon.ErrNotFound
			}
			return nil, coupon.ErrGlobalLimitReached
		}
		return nil, fmt.Errorf("incrementing usage of coupon %s: %w", couponID, err)
	}

	if perCustomer > 0 && customerID != "" {
		var used int
		if err := tx.QueryRow(ctx, countCustomerUsageSQL, couponID, customerID).Scan(&used); err != nil {
			return nil, fmt.Errorf("counting usage of coupon %s by %q: %w", couponID, customerID, err)
		}
		if used >= perCustomer {
			return nil, coupon.ErrPerCustomerLimitReached
		}
	}

	rec := coupon.UsageRecord{
		ID:              uuid.New(),
		CouponID:        couponID,
		CustomerID:      customerID,
		OrderID:         orderID,
		DiscountApplied: discountApplied,
	}
	err = tx.QueryRow(ctx, insertUsageSQL,
		rec.ID, rec.CouponID, rec.CustomerID, rec.OrderID, rec.DiscountApplied,
	).Scan(&rec.UsedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, coupon.ErrDuplicateRedemption
		}
		return nil, fmt.Errorf("recording usage of coupon %s: %w", couponID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing redemption tx: %w", err)
	}
	return &rec, nil
}

// ListUsage returns the redemption history of a coupon, newest first.
func (r *CouponRepository) ListUsage(ctx context.Context, couponID uuid.UUID) ([]coupon.UsageRecord, error) {
	rows, err := r.pool.Query(ctx, listUsageSQL, couponID)
	if err != nil {
		return nil, fmt.Errorf("listing usage of coupon %s: %w", couponID, err)
	}
	return pgx.CollectRows(rows, scanUsageRecord)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MaxDiscountAmount,
		&c.MinOrderAmount, &c.UsageLimit, &c.UsagePerCustomer, &c.CurrentUsage,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.DeletedAt,
		&c.ApplicableCategories, &c.ExcludeCategories, &c.ApplicableProducts, &c.ExcludeProducts,
		&c.ApplicableCustomers, &c.RestrictToNewCustomers, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func scanUsageRecord(row pgx.CollectableRow) (coupon.UsageRecord, error) {
	var rec coupon.UsageRecord
	err := row.Scan(
		&rec.ID, &rec.CouponID, &rec.CustomerID, &rec.OrderID, &rec.UsedAt, &rec.DiscountApplied,
	)
	return rec, err
}
