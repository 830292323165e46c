package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/pkg/validator"
)

const (
	tracerName = "github.com/utafrali/storefront/internal/service"

	// FeaturedMinRating is the rating a product needs to be featured.
	FeaturedMinRating = 4.5

	// DefaultFeaturedLimit caps Featured when no limit is given.
	DefaultFeaturedLimit = 4
)

// Publisher announces installed catalog snapshots.
type Publisher interface {
	PublishCatalogReloaded(ctx context.Context, snap *catalog.Snapshot) error
}

// CatalogService answers catalog queries against the store's current
// snapshot.
type CatalogService struct {
	store     *catalog.Store
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewCatalogService creates a catalog service. publisher may be nil.
func NewCatalogService(store *catalog.Store, publisher Publisher, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		tracer:    tracing.Tracer(tracerName),
	}
}

func (s *CatalogService) snapshot() (*catalog.Snapshot, error) {
	snap := s.store.Current()
	if snap == nil {
		return nil, apperrors.ServiceUnavailable("catalog not loaded")
	}
	return snap, nil
}

// ValidateCriteria rejects negative or inverted price bounds and unknown
// sort modes. Unknown categories and brands are valid and simply match
// nothing.
func ValidateCriteria(c domain.Criteria) error {
	r := c.PriceRange
	if r.Min.Valid && r.Min.Decimal.IsNegative() {
		return apperrors.InvalidInput("min_price must not be negative")
	}
	if r.Max.Valid && r.Max.Decimal.IsNegative() {
		return apperrors.InvalidInput("max_price must not be negative")
	}
	if r.Min.Valid && r.Max.Valid && r.Min.Decimal.GreaterThan(r.Max.Decimal) {
		return apperrors.InvalidInput("min_price must not exceed max_price")
	}
	if _, ok := domain.ParseSortMode(string(c.SortMode)); !ok {
		return apperrors.InvalidInput(fmt.Sprintf("unknown sort mode %q", c.SortMode))
	}
	return nil
}

// Query filters and orders the catalog.
func (s *CatalogService) Query(ctx context.Context, c domain.Criteria) (*domain.QueryResult, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Query")
	defer span.End()

	c = c.Normalize()
	if err := ValidateCriteria(c); err != nil {
		return nil, tracing.Fail(span, err)
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, tracing.Fail(span, err)
	}

	start := time.Now()
	products, err := query.Execute(snap.Products(), c)
	if err != nil {
		if errors.Is(err, query.ErrUnknownSortMode) {
			return nil, tracing.Fail(span, apperrors.InvalidInput(err.Error()))
		}
		return nil, tracing.Fail(span, fmt.Errorf("execute query: %w", err))
	}
	took := time.Since(start)

	catalogQueriesTotal.WithLabelValues(string(c.SortMode)).Inc()
	catalogQueryResults.Observe(float64(len(products)))
	catalogQueryDuration.Observe(took.Seconds())

	span.SetAttributes(
		attribute.String("catalog.category", c.Category),
		attribute.String("catalog.sort_mode", string(c.SortMode)),
		attribute.Int("catalog.brand_count", len(c.Brands)),
		attribute.Bool("catalog.search", c.SearchQuery != ""),
		attribute.Int("catalog.result_count", len(products)),
		attribute.Int64("catalog.version", int64(snap.Version())),
	)

	s.logger.DebugContext(ctx, "catalog query executed",
		slog.String("category", c.Category),
		slog.String("sort", string(c.SortMode)),
		slog.String("q", c.SearchQuery),
		slog.Int("total", len(products)),
		slog.Duration("took", took),
	)

	return &domain.QueryResult{
		Products:       products,
		Total:          len(products),
		Criteria:       c,
		CatalogVersion: snap.Version(),
		TookMs:         took.Milliseconds(),
	}, nil
}

// GetProduct returns the product with id.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	p, ok := snap.Get(id)
	if !ok {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return &p, nil
}

// GetProductBySlug returns the product with slug.
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	p, ok := snap.GetBySlug(slug)
	if !ok {
		return nil, apperrors.NotFoundBy("product", "slug", slug)
	}
	return &p, nil
}

// ProductsByCategory returns the products in category, in catalog order.
func (s *CatalogService) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.filter(domain.Criteria{Category: category})
}

// Search returns the products matching q in name, description, category or
// brand, in catalog order.
func (s *CatalogService) Search(ctx context.Context, q string) ([]domain.Product, error) {
	return s.filter(domain.Criteria{SearchQuery: q})
}

// OnSale returns the discounted products in catalog order.
func (s *CatalogService) OnSale(ctx context.Context) ([]domain.Product, error) {
	return s.filter(domain.Criteria{OnSale: true})
}

func (s *CatalogService) filter(c domain.Criteria) ([]domain.Product, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return query.Filter(snap.Products(), query.Build(c.Normalize())), nil
}

// Featured returns up to limit products rated FeaturedMinRating or better,
// in catalog order. A non-positive limit means DefaultFeaturedLimit.
func (s *CatalogService) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	featured := query.Filter(snap.Products(), query.MinRating(FeaturedMinRating))
	if len(featured) > limit {
		featured = featured[:limit]
	}
	return featured, nil
}

// Facets summarizes the filter options of the current catalog.
func (s *CatalogService) Facets(ctx context.Context) (*domain.Facets, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	f := snap.Facets()
	return &f, nil
}

// Reload installs a fresh snapshot from the store's source and announces
// it. A failed reload leaves the current snapshot in place. Publishing
// failures are logged and do not fail the reload.
func (s *CatalogService) Reload(ctx context.Context) (*catalog.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Reload",
		trace.WithAttributes(attribute.String("catalog.source", s.store.SourceName())),
	)
	defer span.End()

	snap, err := s.store.Load(ctx)
	if err != nil {
		catalogReloadsTotal.WithLabelValues(s.store.SourceName(), "error").Inc()
		attrs := []any{
			slog.String("source", s.store.SourceName()),
			slog.String("error", err.Error()),
		}
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			attrs = append(attrs, slog.Any("invalid_fields", valErr.Fields()))
		}
		s.logger.ErrorContext(ctx, "catalog reload failed", attrs...)
		return nil, tracing.Fail(span, fmt.Errorf("reload catalog: %w", err))
	}

	catalogReloadsTotal.WithLabelValues(snap.Source(), "success").Inc()
	catalogProducts.Set(float64(snap.Len()))
	catalogSnapshotVersion.Set(float64(snap.Version()))
	span.SetAttributes(
		attribute.Int64("catalog.version", int64(snap.Version())),
		attribute.Int("catalog.product_count", snap.Len()),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishCatalogReloaded(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "failed to publish catalog reloaded event",
				slog.Uint64("version", snap.Version()),
				slog.String("error", err.Error()),
			)
		}
	}

	return snap, nil
}

// Ready reports whether a snapshot is installed.
func (s *CatalogService) Ready(_ context.Context) error {
	_, err := s.snapshot()
	return err
}
