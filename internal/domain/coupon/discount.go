package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculate returns the discount a coupon of type t and value grants on
// subtotal. The amount is clamped to [0, subtotal] and rounded to cents. The
// second result is false for unsupported discount types, in which case the
// amount is zero.
func Calculate(t DiscountType, value, subtotal decimal.Decimal) (decimal.Decimal, bool) {
	var amount decimal.Decimal
	switch t {
	case DiscountPercentage:
		amount = subtotal.Mul(value).Div(hundred)
	case DiscountFixedAmount:
		amount = decimal.Min(value, subtotal)
	default:
		return decimal.Zero, false
	}
	return clamp(amount, subtotal).Round(2), true
}

func clamp(d, upper decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(upper) {
		return upper
	}
	return d
}
