package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func baseCoupon() *Coupon {
	return &Coupon{
		Code:          "SAVE20",
		DiscountType:  DiscountPercentage,
		DiscountValue: decimal.NewFromInt(20),
		IsActive:      true,
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestEvaluate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		mutate        func(c *Coupon)
		octx          OrderContext
		customerUsage int
		now           time.Time
		wantValid     bool
		wantReason    ReasonCode
	}{
		{
			name:      "eligible coupon passes",
			octx:      OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:       fixedNow,
			wantValid: true,
		},
		{
			name:       "soft-deleted coupon reports not found",
			mutate:     func(c *Coupon) { c.DeletedAt = &fixedNow },
			octx:       OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:        fixedNow,
			wantReason: ReasonNotFound,
		},
		{
			name:       "inactive coupon",
			mutate:     func(c *Coupon) { c.IsActive = false },
			octx:       OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:        fixedNow,
			wantReason: ReasonInactive,
		},
		{
			name:       "before start date",
			octx:       OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:        time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
			wantReason: ReasonNotYetStarted,
		},
		{
			name:      "exactly at start date is valid",
			octx:      OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantValid: true,
		},
		{
			name:       "after end date",
			octx:       OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			wantReason: ReasonExpired,
		},
		{
			name:      "exactly at end date is valid",
			octx:      OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:       time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			wantValid: true,
		},
		{
			name: "global usage limit reached",
			mutate: func(c *Coupon) {
				c.UsageLimit = intPtr(100)
				c.CurrentUsage = 100
			},
			octx:       OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:        fixedNow,
			wantReason: ReasonGlobalLimitReached,
		},
		{
			name: "nil usage limit is unlimited",
			mutate: func(c *Coupon) {
				c.CurrentUsage = 1_000_000
			},
			octx:      OrderContext{Subtotal: decimal.NewFromInt(100)},
			now:       fixedNow,
			wantValid: true,
		},
		{
			name:       "subtotal below minimum order amount",
			mutate:     func(c *Coupon) { c.MinOrderAmount = decimal.NewFromInt(50) },
			octx:       OrderContext{Subtotal: decimal.NewFromFloat(49.99)},
			now:        fixedNow,
			wantReason: ReasonBelowMinimumOrder,
		},
		{
			name:      "subtotal equal to minimum passes",
			mutate:    func(c *Coupon) { c.MinOrderAmount = decimal.NewFromInt(50) },
			octx:      OrderContext{Subtotal: decimal.NewFromInt(50)},
			now:       fixedNow,
			wantValid: true,
		},
		{
			name:   "no item in applicable category",
			mutate: func(c *Coupon) { c.ApplicableCategories = []string{"books"} },
			octx: OrderContext{
				Subtotal: decimal.NewFromInt(100),
				Items:    []LineItem{{ProductID: "p1", CategoryID: "toys"}},
			},
			now:        fixedNow,
			wantReason: ReasonCategoryNotEligible,
		},
		{
			name:   "one qualifying item satisfies applicable categories",
			mutate: func(c *Coupon) { c.ApplicableCategories = []string{"books"} },
			octx: OrderContext{
				Subtotal: decimal.NewFromInt(100),
				Items: []LineItem{
					{ProductID: "p1", CategoryID: "toys"},
					{ProductID: "p2", CategoryID: "books"},
				},
			},
			now:       fixedNow,
			wantValid: true,
		},
		{
			name:   "item in excluded category rejects whole order",
			mutate: func(c *Coupon) { c.ExcludeCategories = []string{"alcohol"} },
			octx: OrderContext{
				Subtotal: decimal.NewFromInt(100),
				Items: []LineItem{
					{ProductID: "p1", CategoryID: "books"},
					{ProductID: "p2", CategoryID: "alcohol"},
				},
			},
			now:        fixedNow,
			wantReason: ReasonCategoryExcluded,
		},
		{
			name:   "no item in applicable products",
			mutate: func(c *Coupon) { c.ApplicableProducts = []string{"p9"} },
			octx: OrderContext{
				Subtotal: decimal.NewFromInt(100),
				Items:    []LineItem{{ProductID: "p1", CategoryID: "books"}},
			},
			now:        fixedNow,
			wantReason: ReasonProductNotEligible,
		},
		{
			name:   "excluded product present",
			mutate: func(c *Coupon) { c.ExcludeProducts = []string{"p1"} },
			octx: OrderContext{
				Subtotal: decimal.NewFromInt(100),
				Items:    []LineItem{{ProductID: "p1", CategoryID: "books"}},
			},
			now:        fixedNow,
			wantReason: ReasonProductExcluded,
		},
		{
			name:   "returning customer on new-customer coupon",
			mutate: func(c *Coupon) { c.RestrictToNewCustomers = true },
			octx: OrderContext{
				Subtotal:      decimal.NewFromInt(100),
				CustomerID:    "cust-1",
				IsNewCustomer: false,
			},
			now:        fixedNow,
			wantReason: ReasonNotNewCustomer,
		},
		{
			name:   "new customer on new-customer coupon passes",
			mutate: func(c *Coupon) { c.RestrictToNewCustomers = true },
			octx: OrderContext{
				Subtotal:      decimal.NewFromInt(100),
				CustomerID:    "cust-1",
				IsNewCustomer: true,
			},
			now:       fixedNow,
			wantValid: true,
		},
		{
			name:   "customer not in allow list",
			mutate: func(c *Coupon) { c.ApplicableCustomers = []string{"vip-1", "vip-2"} },
			octx: OrderContext{
				Subtotal:   decimal.NewFromInt(100),
				CustomerID: "cust-1",
			},
			now:        fixedNow,
			wantReason: ReasonCustomerNotEligible,
		},
		{
			name:          "per-customer limit reached",
			mutate:        func(c *Coupon) { c.UsagePerCustomer = 1 },
			octx:          OrderContext{Subtotal: decimal.NewFromInt(100), CustomerID: "cust-1"},
			customerUsage: 1,
			now:           fixedNow,
			wantReason:    ReasonPerCustomerLimitReached,
		},
		{
			name:          "different customer under per-customer limit passes",
			mutate:        func(c *Coupon) { c.UsagePerCustomer = 1 },
			octx:          OrderContext{Subtotal: decimal.NewFromInt(100), CustomerID: "cust-2"},
			customerUsage: 0,
			now:           fixedNow,
			wantValid:     true,
		},
		{
			name:          "zero per-customer limit is unlimited",
			mutate:        func(c *Coupon) { c.UsagePerCustomer = 0 },
			octx:          OrderContext{Subtotal: decimal.NewFromInt(100), CustomerID: "cust-1"},
			customerUsage: 500,
			now:           fixedNow,
			wantValid:     true,
		},
		{
			name: "expired wins over below minimum",
			mutate: func(c *Coupon) {
				c.MinOrderAmount = decimal.NewFromInt(1000)
			},
			octx:       OrderContext{Subtotal: decimal.NewFromInt(10)},
			now:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantReason: ReasonExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCoupon()
			if tt.mutate != nil {
				tt.mutate(c)
			}

			got := Evaluate(c, &tt.octx, tt.customerUsage, tt.now)

			assert.Equal(t, tt.wantValid, got.Valid)
			if !tt.wantValid {
				assert.Equal(t, tt.wantReason, got.Reason)
			} else {
				assert.Empty(t, got.Reason)
			}
		})
	}
}

func TestEvaluateNilCoupon(t *testing.T) {
	got := Evaluate(nil, &OrderContext{Subtotal: decimal.NewFromInt(10)}, 0, time.Now())
	assert.False(t, got.Valid)
	assert.Equal(t, ReasonNotFound, got.Reason)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := baseCoupon()
	octx := &OrderContext{Subtotal: decimal.NewFromInt(100)}

	first := Evaluate(c, octx, 0, fixedNow)
	second := Evaluate(c, octx, 0, fixedNow)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, c.CurrentUsage)
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "already canonical", raw: "SAVE20", want: "SAVE20"},
		{name: "lower case upper-cased", raw: "save20", want: "SAVE20"},
		{name: "surrounding whitespace trimmed", raw: "  Save20\t", want: "SAVE20"},
		{name: "hyphens allowed", raw: "black-friday-25", want: "BLACK-FRIDAY-25"},
		{name: "empty rejected", raw: "", wantErr: true},
		{name: "whitespace only rejected", raw: "   ", wantErr: true},
		{name: "inner space rejected", raw: "SAVE 20", wantErr: true},
		{name: "punctuation rejected", raw: "SAVE20!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCode(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
