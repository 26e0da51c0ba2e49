// Package coupon implements coupon lookup, validation, and discount
// calculation.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Rejection sentinels. Each maps to a distinct user-facing reason.
var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("invalid coupon code")
	// ErrInactive is returned when the coupon exists but is switched off.
	ErrInactive = errors.New("coupon is not active")
	// ErrExhausted is returned when the coupon has reached its usage cap.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrNotYetValid is returned before the coupon's validity window opens.
	ErrNotYetValid = errors.New("coupon is not valid yet")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumNotMet is returned when the order subtotal is below the
	// coupon's minimum order amount.
	ErrMinimumNotMet = errors.New("order minimum for coupon not met")
)

// IsRejection reports whether err is one of the coupon rejection sentinels,
// as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrNotFound, ErrInactive, ErrExhausted,
		ErrNotYetValid, ErrExpired, ErrMinimumNotMet,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Rule defines a coupon's discount behaviour and eligibility constraints.
// MaxUses of zero means unlimited uses.
type Rule struct {
	ID             string
	Code           string
	Type           DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxUses        int
	Uses           int
	Active         bool
}

// Discount holds the computed discount amount and the rule that produced it.
type Discount struct {
	Amount decimal.Decimal
	Rule   *Rule
}

// Repository provides lookup of coupon rules by their code. Consumption of a
// use happens separately, inside the order submission transaction.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
