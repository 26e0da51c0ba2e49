// Package order owns order submission and the order lifecycle.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order submission.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNotFound            = errors.New("order not found")
	ErrInvalidCustomerInfo = errors.New("customer name, phone, and address are required")
)

// ItemOption snapshots an option's name and price delta at time of
// purchase, decoupled from later catalog changes.
type ItemOption struct {
	OptionID   string
	Name       string
	PriceDelta decimal.Decimal
}

// Item snapshots one purchased cart line.
type Item struct {
	ID         int64
	MenuItemID string
	Name       string
	Quantity   int
	BasePrice  decimal.Decimal
	LineTotal  decimal.Decimal
	Options    []ItemOption
}

// Order is a persisted customer order with its computed price breakdown.
// CouponID is nullable so deleting a coupon later leaves the order intact.
type Order struct {
	ID             string
	CustomerName   string
	Phone          string
	Address        string
	AreaID         string
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	DiscountType   string // "none", "percentage", or "fixed"
	DiscountAmount decimal.Decimal
	CouponID       *string
	CouponCode     string
	Total          decimal.Decimal
	Status         Status
	RiderName      string
	CreatedAt      time.Time
	Items          []Item
}

// ListFilter narrows order listings. Zero values mean no filtering.
type ListFilter struct {
	Status Status
	Limit  int
}

// Repository defines persistence for orders. Create must be atomic: the
// header, items, item options, and the coupon usage increment all commit or
// none do.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, riderName string) error
	Delete(ctx context.Context, id string) error
}

// Notifier delivers the post-commit purchase event. Implementations are
// best-effort: failures must never surface to the submitting customer.
type Notifier interface {
	SendPurchaseEvent(ctx context.Context, o *Order)
}
