// Command coupon-ingest loads bulk promotional code dumps into the coupons
// table. A code is considered valid when it appears in at least two of the
// three dump files; the cross-file check runs on bloom filters so the dumps
// never have to fit in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront-backend/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

// codeRule describes the discount to grant for a known promotional code.
type codeRule struct {
	discountType   string
	value          string
	minOrderAmount string
	description    string
}

var codeRules = map[string]codeRule{
	"FIFTYOFF": {discountType: "percentage", value: "50", minOrderAmount: "0", description: "50% off entire order"},
	"SIXTYOFF": {discountType: "percentage", value: "60", minOrderAmount: "0", description: "60% off entire order"},
	"FREEZAAA": {discountType: "percentage", value: "100", minOrderAmount: "0", description: "Everything free!"},
	"GNULINUX": {discountType: "percentage", value: "15", minOrderAmount: "0", description: "Open source discount: 15% off"},
	"OVER9000": {discountType: "fixed", value: "9", minOrderAmount: "0", description: "$9 off your order"},
	"HAPPYHRS": {discountType: "percentage", value: "18", minOrderAmount: "0", description: "Happy Hours: 18% off"},
	"BULKSAVE": {discountType: "percentage", value: "25", minOrderAmount: "100", description: "25% off orders over $100"},
	"FIVEBUCK": {discountType: "fixed", value: "5", minOrderAmount: "20", description: "$5 off orders over $20"},
}

var defaultRule = codeRule{
	discountType:   "percentage",
	value:          "10",
	minOrderAmount: "0",
	description:    "Valid promo code: 10% off",
}

// upsertCouponSQL targets the partial unique index on live coupon codes, so
// re-running the ingest refreshes rules instead of failing.
const upsertCouponSQL = `INSERT INTO coupons (
		code, description, discount_type, discount_value, min_order_amount,
		start_date, end_date, is_active
	) VALUES ($1, $2, $3, $4, $5, now(), now() + interval '1 year', TRUE)
	ON CONFLICT (UPPER(code)) WHERE deleted_at IS NULL DO UPDATE SET
		description = EXCLUDED.description,
		discount_type = EXCLUDED.discount_type,
		discount_value = EXCLUDED.discount_value,
		min_order_amount = EXCLUDED.min_order_amount,
		updated_at = now()`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing couponbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: collecting codes present in multiple files")

	validCodes, err := collectValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect valid codes")
	}

	slog.Info("valid codes found", slog.Int("count", len(validCodes)))

	if len(validCodes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeCoupons(ctx, pool, validCodes); err != nil {
		return errors.Wrap(err, "write coupons to database")
	}

	return nil
}

// buildFilters streams every dump once, in parallel, and fills one bloom
// filter per file.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var n uint64

			err := forEachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				filter.AddString(code)
				if n++; n%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", n))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_codes", n))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// collectValidCodes streams each dump a second time, testing every code
// against the other files' filters. Per-file results are bitmasks of which
// dumps a code was seen in; codes with two or more bits set survive.
func collectValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			seen := make(map[string]uint)
			bit := uint(1) << uint(i)
			var n uint64

			err := forEachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				if n++; n%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("file", i+1), slog.Uint64("codes", n))
				}

				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						seen[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}

			slog.Info("pass 2 complete",
				slog.Int("file", i+1),
				slog.Uint64("total_codes", n),
				slog.Int("candidates", len(seen)),
			)
			perFile[i] = seen
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, seen := range perFile {
		for code, mask := range seen {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}
	return valid, nil
}

// forEachLine streams a gzip file line by line. pgzip decompresses on
// multiple cores, which matters at these file sizes.
func forEachLine(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons to database", slog.Int("count", len(codes)))

	for i, code := range codes {
		rule, ok := codeRules[code]
		if !ok {
			rule = defaultRule
		}

		value, err := decimal.NewFromString(rule.value)
		if err != nil {
			return errors.Wrapf(err, "parse discount value for code %s", code)
		}
		minOrder, err := decimal.NewFromString(rule.minOrderAmount)
		if err != nil {
			return errors.Wrapf(err, "parse min order amount for code %s", code)
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			code, rule.description, rule.discountType, value, minOrder,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
