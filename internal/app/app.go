package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "catalog-service"

// idempotencyKeyPrefix namespaces processed event IDs in Redis.
const idempotencyKeyPrefix = "catalog:events:"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	service        *service.CatalogService
	backends       *backends
	consumer       *pkgkafka.Consumer
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// A catalog that fails to load at startup is not fatal: the service starts
// unready and serves 503 until a reload succeeds.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	b := &backends{}
	fail := func(err error) (*App, error) {
		b.close()
		_ = shutdownTracer(ctx)
		return nil, err
	}

	// One Redis client serves both the catalog source and the idempotency
	// store, so it is opened before either.
	if cfg.NeedsRedis() {
		if _, err := b.connectRedis(ctx, cfg); err != nil {
			return fail(err)
		}
	}

	source, err := newSource(ctx, cfg, b, logger)
	if err != nil {
		return fail(fmt.Errorf("init catalog source: %w", err))
	}

	store := catalog.NewStore(source, logger)

	// Kafka producer for catalog.reloaded announcements.
	var (
		producer  *pkgkafka.Producer
		publisher service.Publisher
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
	}

	catalogService := service.NewCatalogService(store, publisher, logger)

	if _, err := catalogService.Reload(ctx); err != nil {
		logger.Warn("initial catalog load failed, starting unready",
			slog.String("source", source.Name()),
			slog.String("error", err.Error()),
		)
	}

	// Kafka consumer for product events.
	var consumer *pkgkafka.Consumer
	if cfg.KafkaEnabled {
		var idem pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
		if cfg.IdempotencyStore == config.IdempotencyRedis {
			idem = pkgkafka.NewRedisIdempotencyStore(b.redis, idempotencyKeyPrefix, cfg.IdempotencyTTL)
		}

		eventConsumer := event.NewConsumer(catalogService, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topics:   event.ProductTopics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, pkgkafka.IdempotentHandler(idem, eventConsumer.Handle, logger), logger)

		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("idempotency_store", cfg.IdempotencyStore),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("catalog", catalogService.Ready)
	if b.pool != nil {
		healthHandler.Register("postgres", b.pool.Ping)
	}
	if b.redis != nil {
		rdb := b.redis
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if b.elastic != nil {
		healthHandler.Register("elasticsearch", b.elastic.Ping)
	}
	if producer != nil {
		healthHandler.RegisterOptional("kafka", producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(catalogService, healthHandler, handler.RouterConfig{
		ServiceName:    serviceName,
		AdminToken:     cfg.AdminToken,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		CacheMaxAge:    cfg.CacheMaxAgeSeconds,
		SlowRequest:    time.Duration(cfg.SlowRequestMs) * time.Millisecond,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		service:        catalogService,
		backends:       b,
		consumer:       consumer,
		producer:       producer,
		httpServer:     httpServer,
		shutdownTracer: shutdownTracer,
	}, nil
}

// Run starts the HTTP server, the Kafka consumer and the periodic reloader,
// blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	if a.cfg.CatalogReloadInterval > 0 {
		go a.reloadLoop(ctx, a.cfg.CatalogReloadInterval)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// reloadLoop reloads the catalog every interval until ctx ends. Failures
// keep the previous snapshot and are retried on the next tick.
func (a *App) reloadLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("periodic catalog reload enabled", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Reload logs its own failures.
			_, _ = a.service.Reload(ctx)
		}
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	timeout := time.Duration(a.cfg.ShutdownTimeoutSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.backends.close()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
