package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against an order subtotal at a given
// point in time and returns the computed discount.
//
// Validation never mutates state: it is invoked once for interactive
// feedback before submission and once more inside the submission
// transaction, where the usage counter is consumed separately.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via the Apply function.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate checks, in order and short-circuiting on the first failure:
// code exists, rule is active, usage cap not reached, window has opened,
// window has not closed, subtotal meets the minimum. On success it returns
// the discount computed from the rule.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.Active {
		return nil, ErrInactive
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrExhausted
	}
	if rule.StartsAt != nil && now.Before(*rule.StartsAt) {
		return nil, ErrNotYetValid
	}
	if rule.EndsAt != nil && now.After(*rule.EndsAt) {
		return nil, ErrExpired
	}
	if subtotal.LessThan(rule.MinOrderAmount) {
		return nil, ErrMinimumNotMet
	}

	amount, err := Apply(rule, subtotal)
	if err != nil {
		return nil, err
	}

	return &Discount{Amount: amount, Rule: rule}, nil
}
