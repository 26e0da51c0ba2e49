package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

// Service mutates session carts, validating every addition against the live
// catalog and resolving prices through the pricing engine.
type Service struct {
	store   Store
	catalog catalog.Reader
	pricer  *pricing.Engine
}

// NewService creates a cart Service.
func NewService(store Store, reader catalog.Reader, pricer *pricing.Engine) *Service {
	return &Service{store: store, catalog: reader, pricer: pricer}
}

// Get loads the session's cart. A missing cart is returned empty, not as an
// error.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c == nil {
		c = &Cart{SessionID: sessionID}
	}
	return c, nil
}

// Add validates the item and options against the catalog, resolves the unit
// price, and merges the quantity into an existing line when the fingerprint
// already exists. It fails with catalog.ErrStoreClosed while the store is
// closed and ErrInvalidQuantity for non-positive quantities.
func (s *Service) Add(ctx context.Context, sessionID, itemID string, quantity int, optionIDs []string) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	settings, err := s.catalog.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	if !settings.StoreOpen {
		return nil, catalog.ErrStoreClosed
	}

	resolved, err := s.pricer.ResolveItem(ctx, settings, itemID, optionIDs)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := Fingerprint(itemID, optionIDs)
	if i := c.find(key); i >= 0 {
		c.Lines[i].Quantity += quantity
		// Refresh the snapshot so a mid-session catalog change surfaces
		// here instead of as a mismatch at checkout.
		c.Lines[i].BasePrice = resolved.BasePrice
		c.Lines[i].UnitPrice = resolved.UnitPrice
	} else {
		opts := make([]LineOption, len(resolved.Options))
		for i, o := range resolved.Options {
			opts[i] = LineOption{ID: o.ID, Name: o.Name, PriceDelta: o.PriceDelta}
		}
		c.Lines = append(c.Lines, Line{
			Key:       key,
			ItemID:    resolved.ItemID,
			Name:      resolved.Name,
			Quantity:  quantity,
			BasePrice: resolved.BasePrice,
			Options:   opts,
			UnitPrice: resolved.UnitPrice,
		})
	}

	if err := s.store.Put(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Update sets a line's quantity. A quantity of zero or less removes the
// line. Updating a missing key is a no-op.
func (s *Service) Update(ctx context.Context, sessionID, key string, quantity int) (*Cart, error) {
	settings, err := s.catalog.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	if !settings.StoreOpen {
		return nil, catalog.ErrStoreClosed
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	i := c.find(key)
	if i < 0 {
		return c, nil
	}
	if quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	} else {
		c.Lines[i].Quantity = quantity
	}

	if err := s.store.Put(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Remove deletes a line unconditionally. Removing a non-existent key leaves
// the cart unchanged and reports success.
func (s *Service) Remove(ctx context.Context, sessionID, key string) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	i := c.find(key)
	if i < 0 {
		return c, nil
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)

	if err := s.store.Put(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear empties the session's cart. Called after successful order
// submission.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
