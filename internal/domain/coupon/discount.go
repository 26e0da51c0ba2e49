package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Apply computes the discount amount a rule yields for the given subtotal.
// The amount is capped at the subtotal and never negative, so applying it
// cannot push an order total below the delivery fee.
func Apply(rule *Rule, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch rule.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		amount = rule.Value
	default:
		return decimal.Zero, errors.Errorf("unknown discount type %q", rule.Type)
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}
