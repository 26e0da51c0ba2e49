// Package pricing re-derives authoritative prices from the catalog. It never
// trusts client-submitted totals: every quote is a pure function of the
// catalog snapshot, the cart contents, the store settings, and the clock.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
)

// priceTolerance is the maximum allowed drift between a session-resolved
// unit price and a freshly recomputed one before the quote is rejected.
var priceTolerance = decimal.New(1, -2) // 0.01

// PriceMismatchError indicates a previously resolved session price no longer
// matches the freshly recomputed price. It is never silently corrected.
type PriceMismatchError struct {
	ItemID   string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch for item %s: session %s, recomputed %s",
		e.ItemID, e.Expected, e.Actual)
}

// ResolvedOption is an option's name and price delta snapshotted at
// resolution time.
type ResolvedOption struct {
	ID         string
	Name       string
	PriceDelta decimal.Decimal
}

// ResolvedItem is the verified price breakdown for one (item, option-set)
// combination.
type ResolvedItem struct {
	ItemID    string
	Name      string
	BasePrice decimal.Decimal // after global discount
	Options   []ResolvedOption
	UnitPrice decimal.Decimal
}

// DiscountedBase applies the global discount setting to a base price,
// floored at zero. Inactive settings return the base unchanged.
func DiscountedBase(base decimal.Decimal, d catalog.GlobalDiscount) decimal.Decimal {
	if !d.Active {
		return base
	}

	var discounted decimal.Decimal
	switch d.Type {
	case catalog.DiscountPercentage:
		discounted = base.Sub(base.Mul(d.Value).Div(decimal.NewFromInt(100)))
	case catalog.DiscountFixed:
		discounted = base.Sub(d.Value)
	default:
		return base
	}

	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted.Round(2)
}

// SurchargeApplies reports whether the night surcharge window covers now's
// hour in the configured timezone. StartHour > EndHour means the window
// wraps midnight; StartHour == EndHour means the window is empty.
func SurchargeApplies(s catalog.NightSurcharge, now time.Time) bool {
	if s.Amount.IsZero() || s.StartHour == s.EndHour {
		return false
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()

	if s.StartHour < s.EndHour {
		return hour >= s.StartHour && hour < s.EndHour
	}
	return hour >= s.StartHour || hour < s.EndHour
}

// DeliveryFee computes the area's base charge plus the night surcharge when
// its window covers now. It reports whether the surcharge was applied.
func DeliveryFee(area *catalog.DeliveryArea, s catalog.NightSurcharge, now time.Time) (decimal.Decimal, bool) {
	fee := area.BaseCharge
	if SurchargeApplies(s, now) {
		return fee.Add(s.Amount), true
	}
	return fee, false
}
