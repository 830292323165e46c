package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	ServiceName string
	// AdminToken and JWTSecret guard the reload endpoint. With both empty
	// reloads over HTTP are refused.
	AdminToken     string
	JWTSecret      string
	AllowedOrigins []string
	PprofCIDRs     []string
	// CacheMaxAge is the Cache-Control max-age for catalog reads, in seconds.
	CacheMaxAge int
	SlowRequest time.Duration
	// RateLimitRPS and RateLimitBurst bound API requests per client. A
	// non-positive RPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
	}

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, cfg.SlowRequest))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// Metrics and profiling
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(catalogService, logger)
	rateLimit := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(middleware.CacheControl(cfg.CacheMaxAge))

		r.Get("/", catalogHandler.QueryProducts)
		r.Get("/featured", catalogHandler.FeaturedProducts)
		r.Get("/sale", catalogHandler.SaleProducts)
		r.Get("/search", catalogHandler.SearchProducts)
		r.Get("/category/{category}", catalogHandler.ProductsByCategory)
		r.Get("/slug/{slug}", catalogHandler.GetProductBySlug)
		r.Get("/{id}", catalogHandler.GetProduct)
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(rateLimit)
		r.With(middleware.CacheControl(cfg.CacheMaxAge)).Get("/facets", catalogHandler.Facets)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.AnyOf(
				middleware.StaticToken(cfg.AdminToken, "admin", "admin"),
				middleware.JWT(cfg.JWTSecret),
			)))
			r.Use(middleware.RequireRole("admin"))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/reload", catalogHandler.Reload)
		})
	})

	return r
}
