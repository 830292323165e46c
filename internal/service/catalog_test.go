package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// --- Mocks ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCatalogReloaded(ctx context.Context, snap *catalog.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

type failingSource struct{ err error }

func (f failingSource) Name() string { return "failing" }

func (f failingSource) Load(context.Context) ([]domain.Product, error) { return nil, f.err }

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService returns a service over the embedded storefront catalog.
func newTestService(t *testing.T, pub Publisher) *CatalogService {
	t.Helper()
	store := catalog.NewStore(catalog.NewEmbeddedSource(), newTestLogger())
	svc := NewCatalogService(store, pub, newTestLogger())
	if pub == nil {
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}
	return svc
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// --- Query ---

func TestCatalogService_QueryDefaultIsPopularity(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), domain.DefaultCriteria())
	require.NoError(t, err)

	// rating * review_count: 1359, 869.4, 742.5, 686.4, 582.8, 531, 446.5, 399.5, 331.2
	assert.Equal(t, []int64{2, 3, 8, 4, 1, 5, 9, 6, 7}, ids(result.Products))
	assert.Equal(t, 9, result.Total)
	assert.Equal(t, uint64(1), result.CatalogVersion)
	assert.Equal(t, domain.SortPopularity, result.Criteria.SortMode)
}

func TestCatalogService_QueryFiltersAndSorts(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), domain.Criteria{
		Category: "paints",
		SortMode: "price-high-low",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 3}, ids(result.Products))
	assert.Equal(t, domain.SortPriceDesc, result.Criteria.SortMode)
}

func TestCatalogService_QueryPriceRangeAndBrands(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), domain.Criteria{
		PriceRange: domain.PriceRange{Min: price("1000"), Max: price("5000")},
		Brands:     []string{"Asian Paints", "Nerolac", "Logitech", "Sony"},
		SortMode:   domain.SortPriceAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{8, 3, 9}, ids(result.Products))
}

func TestCatalogService_QueryOnSaleNewest(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), domain.Criteria{OnSale: true, SortMode: domain.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 8, 6, 5, 4, 3, 2, 1}, ids(result.Products))
}

func TestCatalogService_QueryUnknownValuesYieldEmpty(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), domain.Criteria{Brands: []string{"Apple"}})
	require.NoError(t, err)
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Zero(t, result.Total)
}

func TestCatalogService_QueryValidation(t *testing.T) {
	svc := newTestService(t, nil)

	tests := []struct {
		name     string
		criteria domain.Criteria
		message  string
	}{
		{"negative min", domain.Criteria{PriceRange: domain.PriceRange{Min: price("-1")}}, "min_price must not be negative"},
		{"negative max", domain.Criteria{PriceRange: domain.PriceRange{Max: price("-1")}}, "max_price must not be negative"},
		{"inverted range", domain.Criteria{PriceRange: domain.PriceRange{Min: price("10"), Max: price("5")}}, "min_price must not exceed max_price"},
		{"unknown sort", domain.Criteria{SortMode: "cheapest"}, `unknown sort mode "cheapest"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Query(context.Background(), tt.criteria)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCatalogService_NotLoaded(t *testing.T) {
	store := catalog.NewStore(catalog.NewEmbeddedSource(), newTestLogger())
	svc := NewCatalogService(store, nil, newTestLogger())
	ctx := context.Background()

	_, err := svc.Query(ctx, domain.DefaultCriteria())
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	_, err = svc.GetProduct(ctx, 1)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	_, err = svc.Facets(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	assert.Error(t, svc.Ready(ctx))
}

// --- Lookups ---

func TestCatalogService_GetProduct(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Dell OptiPlex Desktop Computer", p.Name)
	assert.Equal(t, "dell-optiplex-desktop-computer", p.Slug)

	_, err = svc.GetProduct(ctx, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCatalogService_GetProductBySlug(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.GetProductBySlug(ctx, "astral-cpvc-pipes-10ft")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)

	_, err = svc.GetProductBySlug(ctx, "no-such-product")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCatalogService_ProductsByCategory(t *testing.T) {
	svc := newTestService(t, nil)

	products, err := svc.ProductsByCategory(context.Background(), "PAINTS")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, ids(products))
}

func TestCatalogService_Search(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	products, err := svc.Search(ctx, "wireless")
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, ids(products))

	products, err = svc.Search(ctx, "intel")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(products))

	products, err = svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, products, 9)
}

func TestCatalogService_Featured(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	products, err := svc.Featured(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 5}, ids(products))

	products, err = svc.Featured(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 7, 8, 9}, ids(products))
}

func TestCatalogService_OnSale(t *testing.T) {
	svc := newTestService(t, nil)

	products, err := svc.OnSale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 8, 9}, ids(products))
}

func TestCatalogService_Facets(t *testing.T) {
	svc := newTestService(t, nil)

	f, err := svc.Facets(context.Background())
	require.NoError(t, err)

	require.Len(t, f.Categories, 9)
	assert.Equal(t, domain.FacetCount{Name: "all", Count: 9}, f.Categories[0])
	assert.Equal(t, domain.FacetCount{Name: "Laptops", Count: 1}, f.Categories[1])
	assert.Contains(t, f.Categories, domain.FacetCount{Name: "Paints", Count: 2})
	assert.Len(t, f.Brands, 9)
	assert.True(t, decimal.RequireFromString("899.99").Equal(f.PriceRange.Min))
	assert.True(t, decimal.RequireFromString("65999.99").Equal(f.PriceRange.Max))
	assert.Equal(t, 9, f.InStock)
}

// --- Reload ---

func TestCatalogService_ReloadPublishes(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishCatalogReloaded", mock.Anything, mock.MatchedBy(func(s *catalog.Snapshot) bool {
		return s.Len() == 9
	})).Return(nil).Twice()

	svc := newTestService(t, pub)

	snap, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version())

	snap, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version())
	assert.NoError(t, svc.Ready(context.Background()))

	pub.AssertExpectations(t)
}

func TestCatalogService_ReloadPublishFailureIgnored(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishCatalogReloaded", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := newTestService(t, pub)

	snap, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, snap.Len())
	pub.AssertNumberOfCalls(t, "PublishCatalogReloaded", 1)
}

func TestCatalogService_ReloadFailure(t *testing.T) {
	pub := new(mockPublisher)
	store := catalog.NewStore(failingSource{err: errors.New("connection refused")}, newTestLogger())
	svc := NewCatalogService(store, pub, newTestLogger())

	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Error(t, svc.Ready(context.Background()))
	pub.AssertNotCalled(t, "PublishCatalogReloaded", mock.Anything, mock.Anything)
}

func TestValidateCriteria_AcceptsAliasesAndOpenRanges(t *testing.T) {
	assert.NoError(t, ValidateCriteria(domain.Criteria{SortMode: "price-low-high"}))
	assert.NoError(t, ValidateCriteria(domain.Criteria{PriceRange: domain.PriceRange{Min: price("0"), Max: price("0")}}))
	assert.NoError(t, ValidateCriteria(domain.DefaultCriteria()))
}
