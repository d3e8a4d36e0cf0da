package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem carries the product identity needed for eligibility checks.
// Prices do not matter here, only the aggregate subtotal does.
type LineItem struct {
	ProductID  string
	CategoryID string
}

// OrderContext is a snapshot of the order being evaluated against a coupon.
type OrderContext struct {
	Subtotal      decimal.Decimal
	Items         []LineItem
	CustomerID    string
	IsNewCustomer bool
}

// Evaluate checks a coupon against an order snapshot and reports the first
// failing condition. The check order is fixed, so an expired coupon reports
// EXPIRED even when the order is also below the minimum amount.
//
// customerUsage is the caller-supplied ledger count for this customer and
// coupon; now is the evaluation instant. Evaluate is pure: it reads nothing
// beyond its arguments and mutates nothing, which is what makes the
// optimistic check at order time and the re-check inside RecordUsage agree.
func Evaluate(c *Coupon, octx *OrderContext, customerUsage int, now time.Time) Result {
	if c == nil || c.Deleted() {
		return rejected(ReasonNotFound)
	}
	if !c.IsActive {
		return rejected(ReasonInactive)
	}
	if now.Before(c.StartDate) {
		return rejected(ReasonNotYetStarted)
	}
	if now.After(c.EndDate) {
		return rejected(ReasonExpired)
	}
	if c.UsageLimit != nil && c.CurrentUsage >= *c.UsageLimit {
		return rejected(ReasonGlobalLimitReached)
	}
	if octx.Subtotal.LessThan(c.MinOrderAmount) {
		return rejected(ReasonBelowMinimumOrder)
	}
	if len(c.ApplicableCategories) > 0 && !anyItemInCategories(octx.Items, c.ApplicableCategories) {
		return rejected(ReasonCategoryNotEligible)
	}
	if len(c.ExcludeCategories) > 0 && anyItemInCategories(octx.Items, c.ExcludeCategories) {
		return rejected(ReasonCategoryExcluded)
	}
	if len(c.ApplicableProducts) > 0 && !anyItemInProducts(octx.Items, c.ApplicableProducts) {
		return rejected(ReasonProductNotEligible)
	}
	if len(c.ExcludeProducts) > 0 && anyItemInProducts(octx.Items, c.ExcludeProducts) {
		return rejected(ReasonProductExcluded)
	}
	if c.RestrictToNewCustomers && !octx.IsNewCustomer {
		return rejected(ReasonNotNewCustomer)
	}
	if len(c.ApplicableCustomers) > 0 && !contains(c.ApplicableCustomers, octx.CustomerID) {
		return rejected(ReasonCustomerNotEligible)
	}
	if c.UsagePerCustomer > 0 && customerUsage >= c.UsagePerCustomer {
		return rejected(ReasonPerCustomerLimitReached)
	}
	return accepted()
}

func anyItemInCategories(items []LineItem, categories []string) bool {
	for _, it := range items {
		if contains(categories, it.CategoryID) {
			return true
		}
	}
	return false
}

func anyItemInProducts(items []LineItem, products []string) bool {
	for _, it := range items {
		if contains(products, it.ProductID) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
