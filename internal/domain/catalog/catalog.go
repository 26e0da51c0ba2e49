// Package catalog holds the read side of the store: menu items, options,
// delivery areas, and the per-request settings snapshot.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	// ErrItemUnavailable is returned when a menu item does not exist or is
	// marked unavailable.
	ErrItemUnavailable = errors.New("menu item unavailable")
	// ErrOptionNotFound is returned when a selected option no longer exists.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAreaUnavailable is returned when a delivery area does not exist or
	// is inactive.
	ErrAreaUnavailable = errors.New("delivery area unavailable")
	// ErrStoreClosed rejects cart mutations and checkout while the store's
	// open flag is false.
	ErrStoreClosed = errors.New("store is closed")
)

// GroupKind distinguishes single-select and multi-select option groups.
type GroupKind string

const (
	GroupSingle GroupKind = "single"
	GroupMulti  GroupKind = "multi"
)

// MenuItem represents a catalog item available for purchase.
type MenuItem struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Category  string
	Available bool
}

// OptionGroup is a named group of priced add-ons attached to menu items.
type OptionGroup struct {
	ID      string
	Name    string
	Kind    GroupKind
	Options []Option
}

// Option is a priced add-on belonging to one group. PriceDelta is
// non-negative.
type Option struct {
	ID         string
	GroupID    string
	Name       string
	PriceDelta decimal.Decimal
}

// DeliveryArea is a serviced zone with its base delivery charge.
type DeliveryArea struct {
	ID         string
	Name       string
	BaseCharge decimal.Decimal
	Active     bool
}

// DiscountType enumerates the global discount strategies.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// GlobalDiscount is a store-wide reduction applied to every item's base
// price before options are added.
type GlobalDiscount struct {
	Active bool
	Type   DiscountType
	Value  decimal.Decimal
}

// NightSurcharge is a flat delivery-fee addition applied during a configured
// nightly window. The window may wrap midnight (StartHour > EndHour).
type NightSurcharge struct {
	Amount    decimal.Decimal
	StartHour int
	EndHour   int
	Timezone  string
}

// Settings is an immutable per-request snapshot of store configuration.
// Each request loads its own snapshot; snapshots are never shared across
// requests.
type Settings struct {
	StoreOpen      bool
	GlobalDiscount GlobalDiscount
	NightSurcharge NightSurcharge
}

// Reader provides point-in-time reads of the catalog. All reads within one
// request are assumed consistent.
type Reader interface {
	GetItem(ctx context.Context, id string) (*MenuItem, error)
	GetItemsByIDs(ctx context.Context, ids []string) ([]MenuItem, error)
	ListItems(ctx context.Context) ([]MenuItem, error)
	GetOption(ctx context.Context, id string) (*Option, error)
	GetOptionsByIDs(ctx context.Context, ids []string) ([]Option, error)
	ListItemOptionGroups(ctx context.Context, itemID string) ([]OptionGroup, error)
	GetDeliveryArea(ctx context.Context, id string) (*DeliveryArea, error)
	ListDeliveryAreas(ctx context.Context) ([]DeliveryArea, error)
	GetSettings(ctx context.Context) (*Settings, error)
}
