package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

// --- Mock implementations ---

type mockCatalog struct {
	items     map[string]*catalog.MenuItem
	options   map[string]*catalog.Option
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

func (m *mockCatalog) GetDeliveryArea(_ context.Context, _ string) (*catalog.DeliveryArea, error) {
	return nil, catalog.ErrAreaUnavailable
}

func (m *mockCatalog) ListDeliveryAreas(_ context.Context) ([]catalog.DeliveryArea, error) {
	return nil, nil
}

func (m *mockCatalog) GetSettings(_ context.Context) (*catalog.Settings, error) {
	return &catalog.Settings{StoreOpen: m.storeOpen}, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(storeOpen bool) *Service {
	cat := &mockCatalog{
		items: map[string]*catalog.MenuItem{
			"itm_burger": {ID: "itm_burger", Name: "Burger", Price: dec("250"), Available: true},
			"itm_fries":  {ID: "itm_fries", Name: "Fries", Price: dec("120"), Available: true},
		},
		options: map[string]*catalog.Option{
			"opt_cheese": {ID: "opt_cheese", Name: "Cheese", PriceDelta: dec("30")},
			"opt_egg":    {ID: "opt_egg", Name: "Egg", PriceDelta: dec("25")},
		},
		storeOpen: storeOpen,
	}
	return NewService(NewMemoryStore(), cat, pricing.NewEngine(cat, nil))
}

// --- Tests ---

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Fingerprint("itm_burger", []string{"opt_cheese", "opt_egg"})
	b := Fingerprint("itm_burger", []string{"opt_egg", "opt_cheese"})
	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesSelections(t *testing.T) {
	plain := Fingerprint("itm_burger", nil)
	cheesy := Fingerprint("itm_burger", []string{"opt_cheese"})
	otherItem := Fingerprint("itm_fries", nil)

	assert.NotEqual(t, plain, cheesy)
	assert.NotEqual(t, plain, otherItem)
}

func TestAdd_NewLine(t *testing.T) {
	svc := newTestService(true)

	c, err := svc.Add(context.Background(), "s1", "itm_burger", 2, []string{"opt_cheese"})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	line := c.Lines[0]
	assert.Equal(t, "itm_burger", line.ItemID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(dec("280")), "unit %s", line.UnitPrice)
	assert.True(t, c.Subtotal().Equal(dec("560")), "subtotal %s", c.Subtotal())
}

func TestAdd_MergesSameConfiguration(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "itm_burger", 1, []string{"opt_cheese", "opt_egg"})
	require.NoError(t, err)

	// Same options in a different order merge into the existing line.
	c, err := svc.Add(ctx, "s1", "itm_burger", 2, []string{"opt_egg", "opt_cheese"})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestAdd_DifferentConfigurationsStaySeparate(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "itm_burger", 1, nil)
	require.NoError(t, err)

	c, err := svc.Add(ctx, "s1", "itm_burger", 1, []string{"opt_cheese"})
	require.NoError(t, err)

	assert.Len(t, c.Lines, 2)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	svc := newTestService(true)

	_, err := svc.Add(context.Background(), "s1", "itm_burger", 0, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAdd_StoreClosed(t *testing.T) {
	svc := newTestService(false)

	_, err := svc.Add(context.Background(), "s1", "itm_burger", 1, nil)
	require.ErrorIs(t, err, catalog.ErrStoreClosed)
}

func TestAdd_UnknownItem(t *testing.T) {
	svc := newTestService(true)

	_, err := svc.Add(context.Background(), "s1", "itm_pizza", 1, nil)
	require.ErrorIs(t, err, catalog.ErrItemUnavailable)
}

func TestGet_MissingCartIsEmpty(t *testing.T) {
	svc := newTestService(true)

	c, err := svc.Get(context.Background(), "fresh-session")
	require.NoError(t, err)
	assert.Equal(t, "fresh-session", c.SessionID)
	assert.True(t, c.Empty())
}

func TestUpdate_SetsQuantity(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	c, err := svc.Add(ctx, "s1", "itm_fries", 1, nil)
	require.NoError(t, err)
	key := c.Lines[0].Key

	c, err = svc.Update(ctx, "s1", key, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestUpdate_ZeroRemovesLine(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	c, err := svc.Add(ctx, "s1", "itm_fries", 2, nil)
	require.NoError(t, err)

	c, err = svc.Update(ctx, "s1", c.Lines[0].Key, 0)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestUpdate_MissingKeyIsNoop(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "itm_fries", 1, nil)
	require.NoError(t, err)

	c, err := svc.Update(ctx, "s1", "itm_nope:deadbeef", 3)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestRemove_Idempotent(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	c, err := svc.Add(ctx, "s1", "itm_fries", 1, nil)
	require.NoError(t, err)
	key := c.Lines[0].Key

	c, err = svc.Remove(ctx, "s1", key)
	require.NoError(t, err)
	assert.True(t, c.Empty())

	// Removing again reports success with no change.
	c, err = svc.Remove(ctx, "s1", key)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestClear(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "itm_fries", 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "s1"))

	c, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestMemoryStore_IsolatesSessions(t *testing.T) {
	svc := newTestService(true)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", "itm_fries", 1, nil)
	require.NoError(t, err)

	c, err := svc.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, c.Empty())
}
