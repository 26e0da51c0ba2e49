// Command seed-db loads the menu fixture, demo coupons, and an admin API key
// into the database. It is idempotent: rows are upserted by id.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/storage/postgres"
)

type menuFixture struct {
	MenuItems     []menuItemJSON     `json:"menu_items"`
	OptionGroups  []optionGroupJSON  `json:"option_groups"`
	DeliveryAreas []deliveryAreaJSON `json:"delivery_areas"`
}

type menuItemJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Available    bool            `json:"available"`
	OptionGroups []string        `json:"option_groups"`
}

type optionGroupJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Options []struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		PriceDelta decimal.Decimal `json:"price_delta"`
	} `json:"options"`
}

type deliveryAreaJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	BaseCharge decimal.Decimal `json:"base_charge"`
	Active     bool            `json:"active"`
}

func main() {
	var (
		databaseURL  string
		menuFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu fixture JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or KITCHEN_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KITCHEN_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KITCHEN_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or KITCHEN_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KITCHEN_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, pool, menuFile); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedMenu(ctx context.Context, pool *pgxpool.Pool, menuFile string) error {
	slog.Info("reading menu fixture", slog.String("path", menuFile))

	data, err := os.ReadFile(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var fixture menuFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting option groups", slog.Int("count", len(fixture.OptionGroups)))

	for _, g := range fixture.OptionGroups {
		if _, err := pool.Exec(ctx, `
			INSERT INTO option_groups (id, name, kind) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind
		`, g.ID, g.Name, g.Kind); err != nil {
			return errors.Wrapf(err, "upsert option group %s", g.ID)
		}
		for _, o := range g.Options {
			if _, err := pool.Exec(ctx, `
				INSERT INTO options (id, group_id, name, price_delta) VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET group_id = EXCLUDED.group_id,
					name = EXCLUDED.name, price_delta = EXCLUDED.price_delta
			`, o.ID, g.ID, o.Name, o.PriceDelta); err != nil {
				return errors.Wrapf(err, "upsert option %s", o.ID)
			}
		}
	}

	slog.Info("upserting menu items", slog.Int("count", len(fixture.MenuItems)))

	for _, item := range fixture.MenuItems {
		if _, err := pool.Exec(ctx, `
			INSERT INTO menu_items (id, name, price, category, available) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
				category = EXCLUDED.category, available = EXCLUDED.available
		`, item.ID, item.Name, item.Price, item.Category, item.Available); err != nil {
			return errors.Wrapf(err, "upsert menu item %s", item.ID)
		}
		for _, groupID := range item.OptionGroups {
			if _, err := pool.Exec(ctx, `
				INSERT INTO menu_item_option_groups (menu_item_id, group_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, item.ID, groupID); err != nil {
				return errors.Wrapf(err, "link item %s to group %s", item.ID, groupID)
			}
		}

		slog.Info("upserted menu item", slog.String("id", item.ID), slog.String("name", item.Name))
	}

	slog.Info("upserting delivery areas", slog.Int("count", len(fixture.DeliveryAreas)))

	for _, a := range fixture.DeliveryAreas {
		if _, err := pool.Exec(ctx, `
			INSERT INTO delivery_areas (id, name, base_charge, active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
				base_charge = EXCLUDED.base_charge, active = EXCLUDED.active
		`, a.ID, a.Name, a.BaseCharge, a.Active); err != nil {
			return errors.Wrapf(err, "upsert delivery area %s", a.ID)
		}
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	coupons := []struct {
		id, code, kind string
		value          decimal.Decimal
		minOrder       decimal.Decimal
		maxUses        int
	}{
		{id: "cpn_save10", code: "SAVE10", kind: "percentage", value: decimal.NewFromInt(10), minOrder: decimal.NewFromInt(100)},
		{id: "cpn_flat50", code: "FLAT50", kind: "fixed", value: decimal.NewFromInt(50), minOrder: decimal.NewFromInt(300), maxUses: 100},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, `
			INSERT INTO coupons (id, code, discount_type, value, min_order_amount, max_uses, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (code) DO UPDATE SET discount_type = EXCLUDED.discount_type,
				value = EXCLUDED.value, min_order_amount = EXCLUDED.min_order_amount,
				max_uses = EXCLUDED.max_uses, active = TRUE
		`, c.id, c.code, c.kind, c.value, c.minOrder, c.maxUses); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	apikeys := postgres.NewAPIKeyRepository(pool)
	if err := apikeys.Upsert(ctx, &postgres.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default admin key",
	}); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))

	return nil
}
