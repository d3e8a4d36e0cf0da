package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Calculate computes the monetary discount a coupon grants on a subtotal.
// The raw amount is rounded half-up to two decimal places before the caps
// are applied, so the result never exceeds the subtotal or, for percentage
// coupons, the configured maximum. Calculate assumes eligibility was already
// established; it never errors.
func Calculate(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsNegative() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
		if c.MaxDiscountAmount != nil {
			amount = decimal.Min(amount, *c.MaxDiscountAmount)
		}
	case DiscountFixed:
		amount = c.DiscountValue.Round(2)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
