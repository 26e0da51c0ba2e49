package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/coupon"
)

// LineInput describes one cart line to be priced. ResolvedUnitPrice carries
// the unit price the session last computed; when HasResolvedPrice is set the
// engine verifies the recomputed price against it.
type LineInput struct {
	Key               string
	ItemID            string
	Quantity          int
	OptionIDs         []string
	ResolvedUnitPrice decimal.Decimal
	HasResolvedPrice  bool
}

// QuotedLine is one verified, fully priced cart line.
type QuotedLine struct {
	Key       string
	ItemID    string
	Name      string
	Quantity  int
	BasePrice decimal.Decimal
	Options   []ResolvedOption
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Quote is the authoritative price breakdown for a cart at a point in time.
type Quote struct {
	Lines          []QuotedLine
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	NightSurcharge bool
	DiscountType   string // "none", "percentage", or "fixed"
	DiscountAmount decimal.Decimal
	Coupon         *coupon.Rule
	CouponRejected error // rejection sentinel when a code was supplied but not applied
	Total          decimal.Decimal
}

// Engine derives authoritative quotes from the catalog and coupon store.
type Engine struct {
	catalog catalog.Reader
	coupons coupon.Validator
}

// NewEngine creates a pricing Engine.
func NewEngine(reader catalog.Reader, coupons coupon.Validator) *Engine {
	return &Engine{catalog: reader, coupons: coupons}
}

// ResolveItem fetches the item and its selected options from the catalog and
// computes the discounted unit price. It fails with catalog sentinels when
// the item is unavailable or an option no longer exists.
func (e *Engine) ResolveItem(ctx context.Context, settings *catalog.Settings, itemID string, optionIDs []string) (*ResolvedItem, error) {
	item, err := e.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, catalog.ErrItemUnavailable
	}

	base := DiscountedBase(item.Price, settings.GlobalDiscount)
	unit := base

	resolved := make([]ResolvedOption, 0, len(optionIDs))
	if len(optionIDs) > 0 {
		opts, err := e.catalog.GetOptionsByIDs(ctx, optionIDs)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]catalog.Option, len(opts))
		for _, o := range opts {
			byID[o.ID] = o
		}
		// Deterministic option order keeps unit prices and fingerprints stable.
		sorted := append([]string(nil), optionIDs...)
		sort.Strings(sorted)
		for _, id := range sorted {
			o, ok := byID[id]
			if !ok {
				return nil, catalog.ErrOptionNotFound
			}
			resolved = append(resolved, ResolvedOption{ID: o.ID, Name: o.Name, PriceDelta: o.PriceDelta})
			unit = unit.Add(o.PriceDelta)
		}
	}

	return &ResolvedItem{
		ItemID:    item.ID,
		Name:      item.Name,
		BasePrice: base,
		Options:   resolved,
		UnitPrice: unit.Round(2),
	}, nil
}

// Quote runs the full pricing pipeline: per-line verification against the
// catalog, subtotal, delivery fee with night surcharge, and coupon discount.
// A supplied coupon code that fails validation degrades to a zero discount
// with the rejection recorded on the quote; infrastructure failures abort.
func (e *Engine) Quote(ctx context.Context, settings *catalog.Settings, lines []LineInput, areaID, couponCode string, now time.Time) (*Quote, error) {
	if len(lines) == 0 {
		return nil, errors.New("no lines to price")
	}

	area, err := e.catalog.GetDeliveryArea(ctx, areaID)
	if err != nil {
		return nil, err
	}
	if !area.Active {
		return nil, catalog.ErrAreaUnavailable
	}

	quoted := make([]QuotedLine, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, errors.Errorf("invalid quantity %d for item %s", line.Quantity, line.ItemID)
		}

		item, err := e.ResolveItem(ctx, settings, line.ItemID, line.OptionIDs)
		if err != nil {
			return nil, err
		}

		if line.HasResolvedPrice && item.UnitPrice.Sub(line.ResolvedUnitPrice).Abs().GreaterThan(priceTolerance) {
			return nil, &PriceMismatchError{
				ItemID:   line.ItemID,
				Expected: line.ResolvedUnitPrice,
				Actual:   item.UnitPrice,
			}
		}

		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		quoted = append(quoted, QuotedLine{
			Key:       line.Key,
			ItemID:    item.ItemID,
			Name:      item.Name,
			Quantity:  line.Quantity,
			BasePrice: item.BasePrice,
			Options:   item.Options,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	subtotal = subtotal.Round(2)

	fee, surcharged := DeliveryFee(area, settings.NightSurcharge, now)

	q := &Quote{
		Lines:          quoted,
		Subtotal:       subtotal,
		DeliveryFee:    fee,
		NightSurcharge: surcharged,
		DiscountType:   "none",
		DiscountAmount: decimal.Zero,
	}

	if couponCode != "" {
		discount, err := e.coupons.Validate(ctx, couponCode, subtotal, now)
		switch {
		case err == nil:
			q.DiscountType = string(discount.Rule.Type)
			q.DiscountAmount = discount.Amount
			q.Coupon = discount.Rule
		case coupon.IsRejection(err):
			q.CouponRejected = err
		default:
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	// Discount is clamped to the subtotal, so the total can never drop
	// below the delivery fee.
	q.Total = subtotal.Sub(q.DiscountAmount).Add(fee).Round(2)

	return q, nil
}
