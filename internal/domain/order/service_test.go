package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/coupon"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

// --- Mock implementations ---

type mockCatalog struct {
	items     map[string]*catalog.MenuItem
	options   map[string]*catalog.Option
	areas     map[string]*catalog.DeliveryArea
	storeOpen bool
}

func (m *mockCatalog) GetItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, catalog.ErrItemUnavailable
	}
	return item, nil
}

func (m *mockCatalog) GetItemsByIDs(_ context.Context, _ []string) ([]catalog.MenuItem, error) {
	return nil, nil
}

func (m *mockCatalog) ListItems(_ context.Context) ([]catalog.MenuItem, error) {
	return nil, nil
}

func (m *mockCatalog) GetOption(_ context.Context, id string) (*catalog.Option, error) {
	o, ok := m.options[id]
	if !ok {
		return nil, catalog.ErrOptionNotFound
	}
	return o, nil
}

func (m *mockCatalog) GetOptionsByIDs(_ context.Context, ids []string) ([]catalog.Option, error) {
	var out []catalog.Option
	for _, id := range ids {
		if o, ok := m.options[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockCatalog) ListItemOptionGroups(_ context.Context, _ string) ([]catalog.OptionGroup, error) {
	return nil, nil
}

func (m *mockCatalog) GetDeliveryArea(_ context.Context, id string) (*catalog.DeliveryArea, error) {
	a, ok := m.areas[id]
	if !ok {
		return nil, catalog.ErrAreaUnavailable
	}
	return a, nil
}

func (m *mockCatalog) ListDeliveryAreas(_ context.Context) ([]catalog.DeliveryArea, error) {
	return nil, nil
}

func (m *mockCatalog) GetSettings(_ context.Context) (*catalog.Settings, error) {
	return &catalog.Settings{StoreOpen: m.storeOpen}, nil
}

type mockCouponRepo struct {
	rules map[string]*coupon.Rule
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	rule, ok := m.rules[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return rule, nil
}

type mockOrderRepo struct {
	created *Order
	byID    map[string]*Order
	err     error

	lastStatus Status
	lastRider  string
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ ListFilter) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, status Status, riderName string) error {
	m.lastStatus = status
	m.lastRider = riderName
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, _ string) error {
	return nil
}

type mockNotifier struct {
	events []*Order
}

func (m *mockNotifier) SendPurchaseEvent(_ context.Context, o *Order) {
	m.events = append(m.events, o)
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc      *Service
	carts    *cart.Service
	orders   *mockOrderRepo
	notifier *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := &mockCatalog{
		items: map[string]*catalog.MenuItem{
			"itm_burger": {ID: "itm_burger", Name: "Burger", Price: dec("500"), Available: true},
		},
		options: map[string]*catalog.Option{
			"opt_cheese": {ID: "opt_cheese", Name: "Cheese", PriceDelta: dec("50")},
		},
		areas: map[string]*catalog.DeliveryArea{
			"area_center": {ID: "area_center", Name: "Center", BaseCharge: dec("60"), Active: true},
		},
		storeOpen: true,
	}
	coupons := &mockCouponRepo{rules: map[string]*coupon.Rule{
		"SAVE10": {
			ID:             "cpn_save10",
			Code:           "SAVE10",
			Type:           coupon.DiscountPercentage,
			Value:          dec("10"),
			MinOrderAmount: dec("100"),
			Active:         true,
		},
	}}

	pricer := pricing.NewEngine(cat, coupon.NewRepoValidator(coupons))
	carts := cart.NewService(cart.NewMemoryStore(), cat, pricer)
	orders := &mockOrderRepo{byID: map[string]*Order{}}
	notifier := &mockNotifier{}

	svc := NewService(cat, pricer, carts, orders, notifier)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}

	return &fixture{svc: svc, carts: carts, orders: orders, notifier: notifier}
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		CustomerName: "Asha",
		Phone:        "+911234567890",
		Address:      "12 Main St",
		AreaID:       "area_center",
	}
}

// --- Tests ---

func TestSubmit_FullOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "s1", "itm_burger", 2, []string{"opt_cheese"})
	require.NoError(t, err)

	req := validRequest()
	req.CouponCode = "SAVE10"

	o, err := f.svc.Submit(ctx, "s1", req)
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	// 2 x (500 + 50) = 1100; 10% coupon = 110; fee 60.
	assert.True(t, o.Subtotal.Equal(dec("1100")), "subtotal %s", o.Subtotal)
	assert.True(t, o.DiscountAmount.Equal(dec("110")), "discount %s", o.DiscountAmount)
	assert.True(t, o.Total.Equal(dec("1050")), "total %s", o.Total)
	require.NotNil(t, o.CouponID)
	assert.Equal(t, "cpn_save10", *o.CouponID)
	assert.Equal(t, "SAVE10", o.CouponCode)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "itm_burger", o.Items[0].MenuItemID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	require.Len(t, o.Items[0].Options, 1)
	assert.Equal(t, "opt_cheese", o.Items[0].Options[0].OptionID)

	// The order was persisted through the repository.
	require.NotNil(t, f.orders.created)
	assert.Equal(t, o.ID, f.orders.created.ID)

	// Post-commit effects: purchase event sent, cart cleared.
	require.Len(t, f.notifier.events, 1)
	c, err := f.carts.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestSubmit_InvalidCouponPlacesUndiscountedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "s1", "itm_burger", 1, nil)
	require.NoError(t, err)

	req := validRequest()
	req.CouponCode = "NOPE"

	o, err := f.svc.Submit(ctx, "s1", req)
	require.NoError(t, err)

	assert.Equal(t, "none", o.DiscountType)
	assert.True(t, o.DiscountAmount.IsZero())
	assert.Nil(t, o.CouponID)
	assert.True(t, o.Total.Equal(dec("560")), "total %s", o.Total)
}

func TestSubmit_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), "s1", validRequest())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmit_MissingCustomerInfo(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
	}{
		{"no name", func(r *SubmitRequest) { r.CustomerName = "  " }},
		{"no phone", func(r *SubmitRequest) { r.Phone = "" }},
		{"no address", func(r *SubmitRequest) { r.Address = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.Submit(context.Background(), "s1", req)
			require.ErrorIs(t, err, ErrInvalidCustomerInfo)
		})
	}
}

func TestSubmit_RepoFailureSurfacesAndKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "s1", "itm_burger", 1, nil)
	require.NoError(t, err)

	f.orders.err = errors.New("db down")

	_, err = f.svc.Submit(ctx, "s1", validRequest())
	require.Error(t, err)

	// No purchase event, and the cart survives for a retry.
	assert.Empty(t, f.notifier.events)
	c, err := f.carts.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, c.Empty())
}

func TestSubmit_StalePriceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "s1", "itm_burger", 1, nil)
	require.NoError(t, err)

	// Catalog price changes after the cart snapshot was taken.
	cat := f.svc.catalog.(*mockCatalog)
	cat.items["itm_burger"].Price = dec("650")

	_, err = f.svc.Submit(ctx, "s1", validRequest())

	var mismatch *pricing.PriceMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "itm_burger", mismatch.ItemID)
}

func TestUpdateStatus_AllowedTransition(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &Order{ID: "o1", Status: StatusPending}

	o, err := f.svc.UpdateStatus(context.Background(), "o1", StatusPreparing, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, o.Status)
	assert.Equal(t, StatusPreparing, f.orders.lastStatus)
}

func TestUpdateStatus_RecordsRider(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &Order{ID: "o1", Status: StatusReady, RiderName: "Ravi"}

	o, err := f.svc.UpdateStatus(context.Background(), "o1", StatusDelivered, "Sana")
	require.NoError(t, err)
	assert.Equal(t, "Sana", o.RiderName)

	// An empty rider name keeps the existing one.
	f.orders.byID["o2"] = &Order{ID: "o2", Status: StatusReady, RiderName: "Ravi"}
	o, err = f.svc.UpdateStatus(context.Background(), "o2", StatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", o.RiderName)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &Order{ID: "o1", Status: StatusDelivered}

	_, err := f.svc.UpdateStatus(context.Background(), "o1", StatusCancelled, "")

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusDelivered, invalid.From)
	assert.Equal(t, StatusCancelled, invalid.To)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "o1", Status("shipped"), "")
	require.Error(t, err)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "missing", StatusPreparing, "")
	require.ErrorIs(t, err, ErrNotFound)
}
