// Command catalogctl queries a catalog file offline and seeds catalog
// backends.
//
//	catalogctl query --category Paints --sort price-asc
//	catalogctl query --catalog products.yaml --brand HP,Dell --min-price 1000
//	catalogctl seed --catalog products.json --target postgres
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/utafrali/storefront/internal/catalog"
	cataloges "github.com/utafrali/storefront/internal/catalog/elasticsearch"
	catalogpg "github.com/utafrali/storefront/internal/catalog/postgres"
	catalogredis "github.com/utafrali/storefront/internal/catalog/redis"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	catalogFlag  = "catalog"
	categoryFlag = "category"
	minPriceFlag = "min-price"
	maxPriceFlag = "max-price"
	brandFlag    = "brand"
	sortFlag     = "sort"
	queryFlag    = "q"
	onSaleFlag   = "on-sale"
	targetFlag   = "target"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  query   filter and sort a catalog, printing the result as JSON
  seed    write a catalog into postgres, redis or elasticsearch
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "catalogctl:", err)
		}
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	switch args[0] {
	case "query":
		return runQuery(ctx, args[1:], stdout, stderr)
	case "seed":
		return runSeed(ctx, args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
}

// sourceFor returns the catalog at path, or the embedded one when path is empty.
func sourceFor(path string) catalog.Source {
	if path == "" {
		return catalog.NewEmbeddedSource()
	}
	return catalog.NewFileSource(path)
}

// --- query ---

func runQuery(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	catalogPath := fs.String(catalogFlag, "", "catalog file (.json, .yaml); embedded catalog when empty")
	category := fs.String(categoryFlag, domain.CategoryAll, "category to keep, or \"all\"")
	minPrice := fs.String(minPriceFlag, "", "lowest list price to keep")
	maxPrice := fs.String(maxPriceFlag, "", "highest list price to keep")
	brands := fs.StringSlice(brandFlag, nil, "brands to keep (repeatable or comma separated)")
	sortMode := fs.String(sortFlag, string(domain.SortPopularity), fmt.Sprintf("ordering, one of %v", domain.ValidSortModes()))
	q := fs.String(queryFlag, "", "text to search in name, description, category and brand")
	onSale := fs.Bool(onSaleFlag, false, "keep only discounted products")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c := domain.Criteria{
		Category:    *category,
		Brands:      *brands,
		SortMode:    domain.SortMode(*sortMode),
		SearchQuery: *q,
		OnSale:      *onSale,
	}
	var err error
	if c.PriceRange.Min, err = parsePrice(minPriceFlag, *minPrice); err != nil {
		return err
	}
	if c.PriceRange.Max, err = parsePrice(maxPriceFlag, *maxPrice); err != nil {
		return err
	}

	store := catalog.NewStore(sourceFor(*catalogPath), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	result, err := service.NewCatalogService(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Query(ctx, c)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func parsePrice(flag, v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("--%s must be a valid number: %w", flag, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// --- seed ---

// catalogWriter replaces the stored catalog.
type catalogWriter interface {
	Save(ctx context.Context, products []domain.Product) error
}

func runSeed(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	catalogPath := fs.String(catalogFlag, "", "catalog file (.json, .yaml); embedded catalog when empty")
	target := fs.String(targetFlag, "", "backend to seed: postgres, redis or elasticsearch")

	if err := fs.Parse(args); err != nil {
		return err
	}
	switch *target {
	case config.SourcePostgres, config.SourceRedis, config.SourceElastic:
	default:
		return fmt.Errorf("--%s must be postgres, redis or elasticsearch, got %q", targetFlag, *target)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter("catalogctl", cfg.LogLevel, stderr)

	// Validate the catalog before touching the backend.
	src := sourceFor(*catalogPath)
	snap, err := catalog.NewStore(src, log).Load(ctx)
	if err != nil {
		return err
	}
	products := snap.Products()

	var w catalogWriter
	switch *target {
	case config.SourcePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, catalogpg.Migrations(), log); err != nil {
			return fmt.Errorf("run catalog migrations: %w", err)
		}
		w = catalogpg.NewRepository(pool)

	case config.SourceRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return err
		}
		defer rdb.Close()

		w = catalogredis.NewRepository(rdb, cfg.RedisKey)

	case config.SourceElastic:
		repo, err := cataloges.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
		if err != nil {
			return err
		}
		w = repo
	}

	if err := w.Save(ctx, products); err != nil {
		return fmt.Errorf("seed %s: %w", *target, err)
	}

	log.Info("catalog seeded",
		slog.String("target", *target),
		slog.String("source", src.Name()),
		slog.Int("products", len(products)),
	)
	return nil
}
