package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	rules map[string]*Rule
	err   error
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	rule, ok := m.rules[code]
	if !ok {
		return nil, ErrNotFound
	}
	return rule, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		rule     *Rule
		subtotal string
		wantErr  error
		wantAmt  string
	}{
		{
			name:     "percentage discount",
			rule:     &Rule{Code: "TEN", Type: DiscountPercentage, Value: dec("10"), Active: true},
			subtotal: "500",
			wantAmt:  "50",
		},
		{
			name:     "fixed discount",
			rule:     &Rule{Code: "FLAT50", Type: DiscountFixed, Value: dec("50"), Active: true},
			subtotal: "500",
			wantAmt:  "50",
		},
		{
			name:     "fixed discount capped at subtotal",
			rule:     &Rule{Code: "FLAT50", Type: DiscountFixed, Value: dec("50"), Active: true},
			subtotal: "30",
			wantAmt:  "30",
		},
		{
			name:     "inactive",
			rule:     &Rule{Code: "OFF", Type: DiscountPercentage, Value: dec("10"), Active: false},
			subtotal: "500",
			wantErr:  ErrInactive,
		},
		{
			name:     "exhausted",
			rule:     &Rule{Code: "CAPPED", Type: DiscountPercentage, Value: dec("10"), Active: true, MaxUses: 5, Uses: 5},
			subtotal: "500",
			wantErr:  ErrExhausted,
		},
		{
			name:     "unlimited uses when cap is zero",
			rule:     &Rule{Code: "FOREVER", Type: DiscountPercentage, Value: dec("10"), Active: true, MaxUses: 0, Uses: 1_000_000},
			subtotal: "500",
			wantAmt:  "50",
		},
		{
			name:     "not yet valid",
			rule:     &Rule{Code: "SOON", Type: DiscountPercentage, Value: dec("10"), Active: true, StartsAt: timePtr(testNow.Add(time.Hour))},
			subtotal: "500",
			wantErr:  ErrNotYetValid,
		},
		{
			name:     "expired",
			rule:     &Rule{Code: "LATE", Type: DiscountPercentage, Value: dec("10"), Active: true, EndsAt: timePtr(testNow.Add(-time.Hour))},
			subtotal: "500",
			wantErr:  ErrExpired,
		},
		{
			name:     "inside validity window",
			rule:     &Rule{Code: "OPEN", Type: DiscountPercentage, Value: dec("10"), Active: true, StartsAt: timePtr(testNow.Add(-time.Hour)), EndsAt: timePtr(testNow.Add(time.Hour))},
			subtotal: "500",
			wantAmt:  "50",
		},
		{
			name:     "minimum not met",
			rule:     &Rule{Code: "MIN100", Type: DiscountPercentage, Value: dec("10"), Active: true, MinOrderAmount: dec("100")},
			subtotal: "99.99",
			wantErr:  ErrMinimumNotMet,
		},
		{
			name:     "minimum met exactly",
			rule:     &Rule{Code: "MIN100", Type: DiscountPercentage, Value: dec("10"), Active: true, MinOrderAmount: dec("100")},
			subtotal: "100",
			wantAmt:  "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(&mockRepo{rules: map[string]*Rule{tt.rule.Code: tt.rule}})

			d, err := v.Validate(context.Background(), tt.rule.Code, dec(tt.subtotal), testNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsRejection(err))
				return
			}

			require.NoError(t, err)
			assert.True(t, d.Amount.Equal(dec(tt.wantAmt)), "got %s, want %s", d.Amount, tt.wantAmt)
			assert.Equal(t, tt.rule.Code, d.Rule.Code)
		})
	}
}

func TestValidate_UnknownCode(t *testing.T) {
	v := NewRepoValidator(&mockRepo{rules: map[string]*Rule{}})

	_, err := v.Validate(context.Background(), "NOPE", dec("500"), testNow)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsRejection(err))
}

func TestValidate_RepoFailureIsNotRejection(t *testing.T) {
	v := NewRepoValidator(&mockRepo{err: errors.New("connection refused")})

	_, err := v.Validate(context.Background(), "TEN", dec("500"), testNow)
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}

func TestApply_RoundsToCents(t *testing.T) {
	rule := &Rule{Type: DiscountPercentage, Value: dec("15")}

	amount, err := Apply(rule, dec("99.99"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("15")), "got %s", amount)
}

func TestApply_UnknownType(t *testing.T) {
	rule := &Rule{Type: DiscountType("mystery"), Value: dec("15")}

	_, err := Apply(rule, dec("100"))
	require.Error(t, err)
}
