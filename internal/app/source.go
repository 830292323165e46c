package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	cataloges "github.com/utafrali/storefront/internal/catalog/elasticsearch"
	catalogpg "github.com/utafrali/storefront/internal/catalog/postgres"
	catalogredis "github.com/utafrali/storefront/internal/catalog/redis"
	"github.com/utafrali/storefront/internal/catalog/remote"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// productAPIBreaker names the circuit breaker guarding the upstream product API.
const productAPIBreaker = "product-api"

// backends holds the connections opened for the configured catalog source.
type backends struct {
	pool    *pgxpool.Pool
	redis   *goredis.Client
	elastic *cataloges.Repository
}

// close releases whatever connections were opened.
func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// connectRedis opens the shared Redis client once.
func (b *backends) connectRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	b.redis = rdb
	return rdb, nil
}

// newSource builds the catalog source named by cfg.CatalogSource, opening
// the connections it needs.
func newSource(ctx context.Context, cfg *config.Config, b *backends, logger *slog.Logger) (catalog.Source, error) {
	switch cfg.CatalogSource {
	case config.SourceEmbedded:
		logger.Info("using embedded catalog")
		return catalog.NewEmbeddedSource(), nil

	case config.SourceFile:
		logger.Info("using catalog file", slog.String("path", cfg.CatalogFile))
		return catalog.NewFileSource(cfg.CatalogFile), nil

	case config.SourcePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, err
		}
		b.pool = pool

		if err := database.RunMigrations(ctx, pool, catalogpg.Migrations(), logger); err != nil {
			return nil, fmt.Errorf("run catalog migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		logger.Info("using postgres catalog",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)
		return catalogpg.NewRepository(pool), nil

	case config.SourceRedis:
		rdb, err := b.connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis catalog", slog.String("key", cfg.RedisKey))
		return catalogredis.NewRepository(rdb, cfg.RedisKey), nil

	case config.SourceRemote:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig(productAPIBreaker),
			logger,
		)
		logger.Info("using remote catalog", slog.String("url", cfg.ProductAPIURL))
		return remote.NewSource(client, cfg.ProductAPIURL), nil

	case config.SourceElastic:
		repo, err := cataloges.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
		if err != nil {
			return nil, err
		}
		b.elastic = repo
		logger.Info("using elasticsearch catalog",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", repo.Index()),
		)
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}
