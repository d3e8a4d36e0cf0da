// Command seed-db loads the demo catalog, a couple of demo coupons, and the
// default admin API key into the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domain/auth"
	"storefront-backend/internal/storage/postgres"
)

const (
	upsertCategorySQL = `INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertProductSQL = `INSERT INTO products (
			id, name, price, category_id,
			image_thumbnail, image_mobile, image_tablet, image_desktop
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			image_thumbnail = EXCLUDED.image_thumbnail,
			image_mobile = EXCLUDED.image_mobile,
			image_tablet = EXCLUDED.image_tablet,
			image_desktop = EXCLUDED.image_desktop`

	upsertCouponSQL = `INSERT INTO coupons (
			code, description, discount_type, discount_value, max_discount_amount,
			min_order_amount, usage_limit, usage_per_customer,
			start_date, end_date, is_active, restrict_to_new_customers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
		ON CONFLICT (UPPER(code)) WHERE deleted_at IS NULL DO UPDATE SET
			description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			max_discount_amount = EXCLUDED.max_discount_amount,
			min_order_amount = EXCLUDED.min_order_amount,
			usage_limit = EXCLUDED.usage_limit,
			usage_per_customer = EXCLUDED.usage_per_customer,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			restrict_to_new_customers = EXCLUDED.restrict_to_new_customers,
			updated_at = now()`

	upsertAPIKeySQL = `INSERT INTO api_keys (key_hash, name, scopes, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = TRUE`
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Image        struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type demoCoupon struct {
	code        string
	description string
	kind        string
	value       decimal.Decimal
	maxDiscount *decimal.Decimal
	minOrder    decimal.Decimal
	usageLimit  *int
	perCustomer int
	newOnly     bool
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		name := p.CategoryName
		if name == "" {
			name = p.CategoryID
		}
		if _, err := pool.Exec(ctx, upsertCategorySQL, p.CategoryID, name); err != nil {
			return errors.Wrapf(err, "upsert category %s", p.CategoryID)
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.CategoryID,
			p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	cap1500 := decimal.NewFromInt(1500)
	limit100 := 100

	now := time.Now().UTC()
	start := now.Add(-24 * time.Hour)
	end := now.AddDate(1, 0, 0)

	coupons := []demoCoupon{
		{
			code:        "SAVE20",
			description: "20% off entire order, up to $1500",
			kind:        "percentage",
			value:       decimal.NewFromInt(20),
			maxDiscount: &cap1500,
			usageLimit:  &limit100,
			perCustomer: 1,
		},
		{
			code:        "FLAT5000",
			description: "$5000 off large orders",
			kind:        "fixed",
			value:       decimal.NewFromInt(5000),
			minOrder:    decimal.NewFromInt(1000),
			perCustomer: 1,
		},
		{
			code:        "WELCOME10",
			description: "10% off your first order",
			kind:        "percentage",
			value:       decimal.NewFromInt(10),
			perCustomer: 1,
			newOnly:     true,
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.description, c.kind, c.value, c.maxDiscount,
			c.minOrder, c.usageLimit, c.perCustomer,
			start, end, c.newOnly,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	keyHash := auth.HashKey(apiKey, []byte(pepper))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		keyHash, "Default admin key", []string{"admin"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default admin key"))

	return nil
}
