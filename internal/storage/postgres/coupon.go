package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, value, min_order_amount,
		starts_at, ends_at, max_uses, current_uses, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	listCouponsSQL = `SELECT id, code, discount_type, value, min_order_amount,
		starts_at, ends_at, max_uses, current_uses, active
		FROM coupons ORDER BY code`

	insertCouponSQL = `INSERT INTO coupons
		(id, code, discount_type, value, min_order_amount, starts_at, ends_at, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateCouponSQL = `UPDATE coupons SET discount_type = $2, value = $3,
		min_order_amount = $4, starts_at = $5, ends_at = $6, max_uses = $7, active = $8
		WHERE id = $1`

	deactivateCouponSQL = `UPDATE coupons SET active = FALSE WHERE id = $1`

	// The cap is re-checked in the same statement that increments usage, so
	// concurrent submissions cannot oversell a capped coupon.
	consumeCouponSQL = `UPDATE coupons SET current_uses = current_uses + 1
		WHERE id = $1 AND (max_uses = 0 OR current_uses < max_uses)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL, plus
// the admin CRUD surface.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Inactive
// coupons are returned as-is; activity is part of validation, so the caller
// can distinguish "unknown code" from "inactive coupon".
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// List returns all coupons ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

// Create inserts a new coupon rule.
func (r *CouponRepository) Create(ctx context.Context, rule *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		rule.ID, rule.Code, string(rule.Type), rule.Value, rule.MinOrderAmount,
		rule.StartsAt, rule.EndsAt, rule.MaxUses, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", rule.Code, err)
	}
	return nil
}

// Update rewrites a coupon's rule fields. The code and usage counter are
// immutable through this path.
func (r *CouponRepository) Update(ctx context.Context, rule *coupon.Rule) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		rule.ID, string(rule.Type), rule.Value, rule.MinOrderAmount,
		rule.StartsAt, rule.EndsAt, rule.MaxUses, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", rule.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Deactivate switches a coupon off without deleting it, so existing orders
// keep their reference.
func (r *CouponRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deactivateCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deactivating coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// consumeCoupon increments a coupon's usage counter inside tx, guarded by
// the usage cap. Zero affected rows means the cap was reached between
// validation and consumption; the caller must roll back.
func consumeCoupon(ctx context.Context, tx pgx.Tx, couponID string) error {
	tag, err := tx.Exec(ctx, consumeCouponSQL, couponID)
	if err != nil {
		return fmt.Errorf("consuming coupon %q: %w", couponID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrExhausted
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		startsAt     *time.Time
		endsAt       *time.Time
		maxUses      int32
		uses         int32
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &discountType, &value, &minOrder,
		&startsAt, &endsAt, &maxUses, &uses, &rule.Active,
	)
	rule.Type = coupon.DiscountType(discountType)
	rule.Value = value
	rule.MinOrderAmount = minOrder
	rule.StartsAt = startsAt
	rule.EndsAt = endsAt
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	return rule, err
}
