package query

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bound(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// twoProducts is the minimal catalog used by the ordering scenarios.
func twoProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Alpha", Category: "Gadgets", Brand: "A", Price: dec("100"), Discount: 0, Rating: 4.0, ReviewCount: 10},
		{ID: 2, Name: "Beta", Category: "Gadgets", Brand: "B", Price: dec("50"), Discount: 50, Rating: 4.8, ReviewCount: 5},
	}
}

func storefront() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "HP Pavilion Gaming Laptop", Description: "gaming laptop", Category: "Laptops", Brand: "HP", Price: dec("65999.99"), Discount: 10, Rating: 4.7, ReviewCount: 124},
		{ID: 2, Name: "Samsung Galaxy M34 5G", Description: "smartphone", Category: "Mobile Phones", Brand: "Samsung", Price: dec("18999.99"), Discount: 15, Rating: 4.5, ReviewCount: 302},
		{ID: 3, Name: "Asian Paints Premium Emulsion", Description: "interior wall paint", Category: "Paints", Brand: "Asian Paints", Price: dec("3599.99"), Discount: 5, Rating: 4.6, ReviewCount: 189},
		{ID: 7, Name: "Astral CPVC Pipes (10ft)", Description: "plumbing pipes", Category: "Pipe Materials", Brand: "Astral", Price: dec("899.99"), Discount: 0, Rating: 4.6, ReviewCount: 72},
		{ID: 9, Name: "Nerolac Impressions HD Paint", Description: "premium interior emulsion", Category: "Paints", Brand: "Nerolac", Price: dec("4799.99"), Discount: 5, Rating: 4.7, ReviewCount: 95},
	}
}

func criteria(mode domain.SortMode) domain.Criteria {
	c := domain.DefaultCriteria()
	c.SortMode = mode
	return c
}

// --- Scenarios ---

func TestExecute_PriceAscUsesDiscountedPrice(t *testing.T) {
	c := criteria(domain.SortPriceAsc)
	c.PriceRange = domain.PriceRange{Min: bound("0"), Max: bound("200")}

	got, err := Execute(twoProducts(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestExecute_PopularityByRatingTimesReviews(t *testing.T) {
	got, err := Execute(twoProducts(), criteria(domain.SortPopularity))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestExecute_BrandFilter(t *testing.T) {
	c := criteria(domain.SortPopularity)
	c.Brands = []string{"A"}

	got, err := Execute(twoProducts(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))
}

// --- Properties ---

func TestExecute_UnfilteredPreservesCardinality(t *testing.T) {
	catalog := storefront()
	for _, mode := range domain.ValidSortModes() {
		t.Run(string(mode), func(t *testing.T) {
			got, err := Execute(catalog, criteria(mode))
			require.NoError(t, err)
			assert.Len(t, got, len(catalog))
			assert.ElementsMatch(t, ids(catalog), ids(got))
		})
	}
}

func TestExecute_EveryResultHasSelectedBrand(t *testing.T) {
	c := criteria(domain.SortRating)
	c.Brands = []string{"Nerolac", "HP", "Unknown"}

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.Contains(t, c.Brands, p.Brand)
	}
}

func TestExecute_Idempotent(t *testing.T) {
	c := criteria(domain.SortPriceDesc)
	c.SearchQuery = "paint"

	first, err := Execute(storefront(), c)
	require.NoError(t, err)
	second, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExecute_PriceBoundsInclusive(t *testing.T) {
	c := criteria(domain.SortNewest)
	c.PriceRange = domain.PriceRange{Min: bound("899.99"), Max: bound("3599.99")}

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3}, ids(got))
}

func TestExecute_PriceFilterUsesListPrice(t *testing.T) {
	// Beta is 50 listed, 25 after discount.
	c := criteria(domain.SortPopularity)
	c.PriceRange = domain.PriceRange{Min: bound("30")}

	got, err := Execute(twoProducts(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestExecute_StableForEqualKeys(t *testing.T) {
	catalog := []domain.Product{
		{ID: 10, Rating: 4.5, Price: dec("1")},
		{ID: 11, Rating: 4.9, Price: dec("1")},
		{ID: 12, Rating: 4.5, Price: dec("1")},
		{ID: 13, Rating: 4.5, Price: dec("1")},
	}

	got, err := Execute(catalog, criteria(domain.SortRating))
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10, 12, 13}, ids(got))

	got, err = Execute(catalog, criteria(domain.SortPriceAsc))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12, 13}, ids(got))
}

func TestExecute_DoesNotMutateCatalog(t *testing.T) {
	catalog := storefront()
	before := ids(catalog)

	got, err := Execute(catalog, criteria(domain.SortPriceAsc))
	require.NoError(t, err)
	assert.Equal(t, before, ids(catalog))

	got[0].Name = "changed"
	assert.NotEqual(t, "changed", catalog[0].Name)
}

func TestExecute_NoMatchesReturnsEmptySlice(t *testing.T) {
	c := criteria(domain.SortPopularity)
	c.Category = "Furniture"

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = Execute(nil, domain.Criteria{})
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestExecute_InvertedRangeIsEmpty(t *testing.T) {
	c := criteria(domain.SortPopularity)
	c.PriceRange = domain.PriceRange{Min: bound("5000"), Max: bound("100")}

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExecute_UnknownSortMode(t *testing.T) {
	_, err := Execute(storefront(), criteria("cheapest"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSortMode))
}

func TestExecute_ZeroCriteriaActsAsDefault(t *testing.T) {
	got, err := Execute(storefront(), domain.Criteria{})
	require.NoError(t, err)
	want, err := Execute(storefront(), domain.DefaultCriteria())
	require.NoError(t, err)
	assert.Equal(t, ids(want), ids(got))
}

func TestExecute_SearchCombinesWithFilters(t *testing.T) {
	c := criteria(domain.SortPopularity)
	c.SearchQuery = "  PAINT "
	c.Brands = []string{"Asian Paints"}

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(got))
}

func TestExecute_OnSale(t *testing.T) {
	c := criteria(domain.SortNewest)
	c.OnSale = true

	got, err := Execute(storefront(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 3, 2, 1}, ids(got))
}

// --- Predicates ---

func TestInCategory(t *testing.T) {
	p := &domain.Product{Category: "Mobile Phones"}
	assert.True(t, InCategory("all")(p))
	assert.True(t, InCategory("ALL")(p))
	assert.True(t, InCategory("")(p))
	assert.True(t, InCategory("mobile phones")(p))
	assert.False(t, InCategory("Mobile")(p))
}

func TestBrandIn_ExactMatch(t *testing.T) {
	p := &domain.Product{Brand: "HP"}
	assert.True(t, BrandIn(nil)(p))
	assert.True(t, BrandIn([]string{"Dell", "HP"})(p))
	assert.False(t, BrandIn([]string{"hp"})(p))
}

func TestMatchesText_Fields(t *testing.T) {
	p := &domain.Product{
		Name:        "Wireless Keyboard and Mouse Combo",
		Description: "Ergonomic set with 2.4GHz connectivity",
		Category:    "Accessories",
		Brand:       "Logitech",
	}

	for _, q := range []string{"keyboard", "ERGONOMIC", "accessor", "logi", ""} {
		assert.True(t, MatchesText(q)(p), q)
	}
	assert.False(t, MatchesText("monitor")(p))
}

func TestAll(t *testing.T) {
	p := &domain.Product{Brand: "HP", Discount: 10}
	assert.True(t, All()(p))
	assert.True(t, All(OnSale(), BrandIn([]string{"HP"}))(p))
	assert.False(t, All(OnSale(), BrandIn([]string{"Dell"}))(p))
}

func TestMinRating(t *testing.T) {
	assert.True(t, MinRating(4.5)(&domain.Product{Rating: 4.5}))
	assert.False(t, MinRating(4.5)(&domain.Product{Rating: 4.4}))
}

// --- Comparators ---

func TestComparator(t *testing.T) {
	a := &domain.Product{ID: 1, Price: dec("100"), Rating: 4.0, ReviewCount: 10}
	b := &domain.Product{ID: 2, Price: dec("50"), Discount: 50, Rating: 4.8, ReviewCount: 5}

	tests := []struct {
		mode domain.SortMode
		want int
	}{
		{domain.SortPriceAsc, 1},
		{"price-low-high", 1},
		{domain.SortPriceDesc, -1},
		{"price-high-low", -1},
		{domain.SortNewest, 1},
		{domain.SortRating, 1},
		{domain.SortPopularity, -1},
		{"", -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			compare, err := Comparator(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, compare(a, b))
			assert.Equal(t, -tt.want, compare(b, a))
			assert.Zero(t, compare(a, a))
		})
	}
}

func TestComparator_Unknown(t *testing.T) {
	compare, err := Comparator("alphabetical")
	assert.Nil(t, compare)
	assert.ErrorIs(t, err, ErrUnknownSortMode)
	assert.Contains(t, err.Error(), "alphabetical")
}
