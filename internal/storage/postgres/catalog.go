package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
)

const (
	getItemSQL = `SELECT id, name, price, category, available
		FROM menu_items WHERE id = $1`

	getItemsByIDsSQL = `SELECT id, name, price, category, available
		FROM menu_items WHERE id = ANY($1)`

	listItemsSQL = `SELECT id, name, price, category, available
		FROM menu_items ORDER BY category, id`

	getOptionSQL = `SELECT id, group_id, name, price_delta
		FROM options WHERE id = $1`

	getOptionsByIDsSQL = `SELECT id, group_id, name, price_delta
		FROM options WHERE id = ANY($1)`

	listItemGroupsSQL = `SELECT g.id, g.name, g.kind
		FROM option_groups g
		JOIN menu_item_option_groups mig ON mig.group_id = g.id
		WHERE mig.menu_item_id = $1
		ORDER BY g.id`

	listGroupOptionsSQL = `SELECT id, group_id, name, price_delta
		FROM options WHERE group_id = ANY($1) ORDER BY id`

	getDeliveryAreaSQL = `SELECT id, name, base_charge, active
		FROM delivery_areas WHERE id = $1`

	listDeliveryAreasSQL = `SELECT id, name, base_charge, active
		FROM delivery_areas WHERE active = TRUE ORDER BY name`

	getSettingsSQL = `SELECT store_open, discount_active, discount_type, discount_value,
		surcharge_amount, surcharge_start_hour, surcharge_end_hour, timezone
		FROM store_settings WHERE id = 1`
)

var _ catalog.Reader = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Reader backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetItem returns a single menu item. Missing items map to
// catalog.ErrItemUnavailable.
func (r *CatalogRepository) GetItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemUnavailable
		}
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	return &item, nil
}

// GetItemsByIDs returns menu items matching any of the given ids.
func (r *CatalogRepository) GetItemsByIDs(ctx context.Context, ids []string) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// ListItems returns the full menu ordered by category then id.
func (r *CatalogRepository) ListItems(ctx context.Context) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// GetOption returns a single option. Missing options map to
// catalog.ErrOptionNotFound.
func (r *CatalogRepository) GetOption(ctx context.Context, id string) (*catalog.Option, error) {
	rows, err := r.pool.Query(ctx, getOptionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting option %q: %w", id, err)
	}

	opt, err := pgx.CollectExactlyOneRow(rows, scanOption)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrOptionNotFound
		}
		return nil, fmt.Errorf("getting option %q: %w", id, err)
	}
	return &opt, nil
}

// GetOptionsByIDs returns options matching any of the given ids.
func (r *CatalogRepository) GetOptionsByIDs(ctx context.Context, ids []string) ([]catalog.Option, error) {
	rows, err := r.pool.Query(ctx, getOptionsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting options by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanOption)
}

// ListItemOptionGroups returns the option groups offered for a menu item,
// each with its options populated.
func (r *CatalogRepository) ListItemOptionGroups(ctx context.Context, itemID string) ([]catalog.OptionGroup, error) {
	rows, err := r.pool.Query(ctx, listItemGroupsSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing option groups for item %q: %w", itemID, err)
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.OptionGroup, error) {
		var g catalog.OptionGroup
		var kind string
		err := row.Scan(&g.ID, &g.Name, &kind)
		g.Kind = catalog.GroupKind(kind)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing option groups for item %q: %w", itemID, err)
	}
	if len(groups) == 0 {
		return groups, nil
	}

	groupIDs := make([]string, len(groups))
	index := make(map[string]int, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
		index[g.ID] = i
	}

	optRows, err := r.pool.Query(ctx, listGroupOptionsSQL, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("listing options for item %q: %w", itemID, err)
	}
	opts, err := pgx.CollectRows(optRows, scanOption)
	if err != nil {
		return nil, fmt.Errorf("listing options for item %q: %w", itemID, err)
	}

	for _, o := range opts {
		i := index[o.GroupID]
		groups[i].Options = append(groups[i].Options, o)
	}
	return groups, nil
}

// GetDeliveryArea returns a single delivery area. Missing areas map to
// catalog.ErrAreaUnavailable.
func (r *CatalogRepository) GetDeliveryArea(ctx context.Context, id string) (*catalog.DeliveryArea, error) {
	rows, err := r.pool.Query(ctx, getDeliveryAreaSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting delivery area %q: %w", id, err)
	}

	area, err := pgx.CollectExactlyOneRow(rows, scanDeliveryArea)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrAreaUnavailable
		}
		return nil, fmt.Errorf("getting delivery area %q: %w", id, err)
	}
	return &area, nil
}

// ListDeliveryAreas returns all active delivery areas ordered by name.
func (r *CatalogRepository) ListDeliveryAreas(ctx context.Context) ([]catalog.DeliveryArea, error) {
	rows, err := r.pool.Query(ctx, listDeliveryAreasSQL)
	if err != nil {
		return nil, fmt.Errorf("listing delivery areas: %w", err)
	}
	return pgx.CollectRows(rows, scanDeliveryArea)
}

// GetSettings loads the store settings snapshot for the current request.
func (r *CatalogRepository) GetSettings(ctx context.Context) (*catalog.Settings, error) {
	var (
		s            catalog.Settings
		discountType string
	)
	err := r.pool.QueryRow(ctx, getSettingsSQL).Scan(
		&s.StoreOpen,
		&s.GlobalDiscount.Active,
		&discountType,
		&s.GlobalDiscount.Value,
		&s.NightSurcharge.Amount,
		&s.NightSurcharge.StartHour,
		&s.NightSurcharge.EndHour,
		&s.NightSurcharge.Timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("getting store settings: %w", err)
	}
	s.GlobalDiscount.Type = catalog.DiscountType(discountType)
	return &s, nil
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var item catalog.MenuItem
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Available)
	return item, err
}

func scanOption(row pgx.CollectableRow) (catalog.Option, error) {
	var o catalog.Option
	err := row.Scan(&o.ID, &o.GroupID, &o.Name, &o.PriceDelta)
	return o, err
}

func scanDeliveryArea(row pgx.CollectableRow) (catalog.DeliveryArea, error) {
	var a catalog.DeliveryArea
	err := row.Scan(&a.ID, &a.Name, &a.BaseCharge, &a.Active)
	return a, err
}
