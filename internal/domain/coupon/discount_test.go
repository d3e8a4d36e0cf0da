package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal decimal.Decimal
		want     decimal.Decimal
	}{
		{
			name: "20 percent of 10000",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
			},
			subtotal: decimal.NewFromInt(10000),
			want:     decimal.NewFromInt(2000),
		},
		{
			name: "percentage capped at max discount amount",
			coupon: Coupon{
				DiscountType:      DiscountPercentage,
				DiscountValue:     decimal.NewFromInt(20),
				MaxDiscountAmount: decPtr(decimal.NewFromInt(1500)),
			},
			subtotal: decimal.NewFromInt(10000),
			want:     decimal.NewFromInt(1500),
		},
		{
			name: "percentage under cap is untouched",
			coupon: Coupon{
				DiscountType:      DiscountPercentage,
				DiscountValue:     decimal.NewFromInt(10),
				MaxDiscountAmount: decPtr(decimal.NewFromInt(1500)),
			},
			subtotal: decimal.NewFromInt(10000),
			want:     decimal.NewFromInt(1000),
		},
		{
			name: "fixed smaller than subtotal",
			coupon: Coupon{
				DiscountType:  DiscountFixed,
				DiscountValue: decimal.NewFromInt(500),
			},
			subtotal: decimal.NewFromInt(3000),
			want:     decimal.NewFromInt(500),
		},
		{
			name: "fixed larger than subtotal is capped",
			coupon: Coupon{
				DiscountType:  DiscountFixed,
				DiscountValue: decimal.NewFromInt(5000),
			},
			subtotal: decimal.NewFromInt(3000),
			want:     decimal.NewFromInt(3000),
		},
		{
			name: "result rounds half up to two decimals",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(15),
			},
			subtotal: decimal.NewFromFloat(10.03),
			want:     decimal.NewFromFloat(1.50),
		},
		{
			name: "midpoint rounds up",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(50),
			},
			subtotal: decimal.NewFromFloat(0.05),
			want:     decimal.NewFromFloat(0.03),
		},
		{
			name: "zero subtotal yields zero",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
			},
			subtotal: decimal.Zero,
			want:     decimal.Zero,
		},
		{
			name: "negative subtotal yields zero",
			coupon: Coupon{
				DiscountType:  DiscountFixed,
				DiscountValue: decimal.NewFromInt(500),
			},
			subtotal: decimal.NewFromInt(-10),
			want:     decimal.Zero,
		},
		{
			name: "hundred percent equals subtotal",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(100),
			},
			subtotal: decimal.NewFromFloat(42.42),
			want:     decimal.NewFromFloat(42.42),
		},
		{
			name: "over hundred percent capped at subtotal",
			coupon: Coupon{
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(150),
			},
			subtotal: decimal.NewFromInt(100),
			want:     decimal.NewFromInt(100),
		},
		{
			name: "fixed never exceeds a sub-cent subtotal",
			coupon: Coupon{
				DiscountType:  DiscountFixed,
				DiscountValue: decimal.NewFromInt(5),
			},
			subtotal: decimal.NewFromFloat(3.005),
			want:     decimal.NewFromFloat(3.005),
		},
		{
			name: "percentage never exceeds a sub-cent cap",
			coupon: Coupon{
				DiscountType:      DiscountPercentage,
				DiscountValue:     decimal.NewFromInt(50),
				MaxDiscountAmount: decPtr(decimal.NewFromFloat(1.005)),
			},
			subtotal: decimal.NewFromInt(100),
			want:     decimal.NewFromFloat(1.005),
		},
		{
			name: "unknown discount type yields zero",
			coupon: Coupon{
				DiscountType:  DiscountType("bogus"),
				DiscountValue: decimal.NewFromInt(20),
			},
			subtotal: decimal.NewFromInt(100),
			want:     decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(&tt.coupon, tt.subtotal)
			assert.True(t, tt.want.Equal(got),
				"expected %s, got %s", tt.want, got)
			assert.True(t, got.LessThanOrEqual(tt.subtotal) || tt.subtotal.IsNegative(),
				"discount %s exceeds subtotal %s", got, tt.subtotal)
			if tt.coupon.DiscountType == DiscountPercentage && tt.coupon.MaxDiscountAmount != nil {
				assert.True(t, got.LessThanOrEqual(*tt.coupon.MaxDiscountAmount),
					"discount %s exceeds cap %s", got, tt.coupon.MaxDiscountAmount)
			}
		})
	}
}
