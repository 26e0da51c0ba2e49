package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

// SubmitRequest holds the customer's checkout input. Totals are never part
// of it: every price is re-derived server-side.
type SubmitRequest struct {
	CustomerName string
	Phone        string
	Address      string
	AreaID       string
	CouponCode   string
}

// Service orchestrates checkout: authoritative repricing, atomic
// persistence, coupon consumption, and post-commit side effects.
type Service struct {
	catalog  catalog.Reader
	pricer   *pricing.Engine
	carts    *cart.Service
	orders   Repository
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	reader catalog.Reader,
	pricer *pricing.Engine,
	carts *cart.Service,
	orders Repository,
	notifier Notifier,
) *Service {
	return &Service{
		catalog:  reader,
		pricer:   pricer,
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit prices the session's cart from the catalog, persists the order
// atomically, and clears the cart. An invalid coupon does not abort the
// submission; the order is written with no discount. Any persistence error
// rolls back the whole write and surfaces to the caller.
func (s *Service) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*Order, error) {
	if strings.TrimSpace(req.CustomerName) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Address) == "" {
		return nil, ErrInvalidCustomerInfo
	}

	settings, err := s.catalog.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	if !settings.StoreOpen {
		return nil, catalog.ErrStoreClosed
	}

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	lines := make([]pricing.LineInput, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = pricing.LineInput{
			Key:               l.Key,
			ItemID:            l.ItemID,
			Quantity:          l.Quantity,
			OptionIDs:         l.OptionIDs(),
			ResolvedUnitPrice: l.UnitPrice,
			HasResolvedPrice:  true,
		}
	}

	now := s.now()
	quote, err := s.pricer.Quote(ctx, settings, lines, req.AreaID, req.CouponCode, now)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New().String(),
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		Address:        req.Address,
		AreaID:         req.AreaID,
		Subtotal:       quote.Subtotal,
		DeliveryFee:    quote.DeliveryFee,
		DiscountType:   quote.DiscountType,
		DiscountAmount: quote.DiscountAmount,
		Total:          quote.Total,
		Status:         StatusPending,
		CreatedAt:      now,
	}
	if quote.Coupon != nil {
		id := quote.Coupon.ID
		o.CouponID = &id
		o.CouponCode = quote.Coupon.Code
	}

	o.Items = make([]Item, len(quote.Lines))
	for i, l := range quote.Lines {
		opts := make([]ItemOption, len(l.Options))
		for j, opt := range l.Options {
			opts[j] = ItemOption{OptionID: opt.ID, Name: opt.Name, PriceDelta: opt.PriceDelta}
		}
		o.Items[i] = Item{
			MenuItemID: l.ItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			BasePrice:  l.BasePrice,
			LineTotal:  l.LineTotal,
			Options:    opts,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is committed; nothing past this point may fail it.
	lg := zctx.From(ctx)
	if s.notifier != nil {
		s.notifier.SendPurchaseEvent(ctx, o)
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		lg.Warn("Failed to clear cart after order", zap.String("order_id", o.ID), zap.Error(err))
	}

	return o, nil
}

// UpdateStatus applies an admin status change, enforcing the transition
// table. The rider name, when non-empty, is recorded with the change.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status, riderName string) (*Order, error) {
	if !to.Valid() {
		return nil, errors.Errorf("unknown status %q", to)
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	if riderName == "" {
		riderName = o.RiderName
	}
	if err := s.orders.UpdateStatus(ctx, id, to, riderName); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	o.Status = to
	o.RiderName = riderName
	return o, nil
}
