package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProduct_DiscountedPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount int
		want     string
	}{
		{"no discount", "100", 0, "100"},
		{"half off", "50", 50, "25"},
		{"ten percent", "65999.99", 10, "59399.991"},
		{"free", "10", 100, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: dec(tt.price), Discount: tt.discount}
			got := p.DiscountedPrice()
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
			assert.True(t, got.LessThanOrEqual(p.Price))
		})
	}
}

func TestProduct_Flags(t *testing.T) {
	p := Product{Discount: 5, Stock: 0, Rating: 4.5, ReviewCount: 10}
	assert.True(t, p.OnSale())
	assert.False(t, p.InStock())
	assert.InDelta(t, 45.0, p.Popularity(), 1e-9)
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in   string
		want SortMode
		ok   bool
	}{
		{"", SortPopularity, true},
		{"popularity", SortPopularity, true},
		{"price-asc", SortPriceAsc, true},
		{"price-low-high", SortPriceAsc, true},
		{"price-high-low", SortPriceDesc, true},
		{" Rating ", SortRating, true},
		{"newest", SortNewest, true},
		{"cheapest", SortMode("cheapest"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSortMode(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceRange_Contains(t *testing.T) {
	r := PriceRange{
		Min: decimal.NewNullDecimal(dec("10")),
		Max: decimal.NewNullDecimal(dec("20")),
	}
	assert.True(t, r.Contains(dec("10")))
	assert.True(t, r.Contains(dec("20")))
	assert.False(t, r.Contains(dec("9.99")))
	assert.False(t, r.Contains(dec("20.01")))

	open := PriceRange{}
	assert.True(t, open.Contains(dec("1000000")))
	assert.False(t, open.Bounded())
	assert.False(t, DefaultCriteria().PriceRange.Bounded())
	assert.True(t, r.Bounded())
}

func TestDefaultCriteria(t *testing.T) {
	c := DefaultCriteria()
	assert.Equal(t, CategoryAll, c.Category)
	assert.Equal(t, SortPopularity, c.SortMode)
	assert.Empty(t, c.Brands)
	assert.Empty(t, c.SearchQuery)
	assert.False(t, c.PriceRange.Max.Valid)
	require.True(t, c.PriceRange.Min.Valid)
	assert.True(t, c.PriceRange.Min.Decimal.IsZero())
}

func TestCriteria_Normalize(t *testing.T) {
	in := Criteria{
		Category:    "  ",
		SortMode:    "price-high-low",
		SearchQuery: "  laptop ",
		Brands:      []string{"HP", "", "HP", " Dell "},
	}

	out := in.Normalize()

	assert.Equal(t, CategoryAll, out.Category)
	assert.Equal(t, SortPriceDesc, out.SortMode)
	assert.Equal(t, "laptop", out.SearchQuery)
	assert.Equal(t, []string{"HP", "Dell"}, out.Brands)
	// The receiver is left untouched.
	assert.Equal(t, []string{"HP", "", "HP", " Dell "}, in.Brands)
}

func TestCriteria_NormalizeKeepsUnknownSort(t *testing.T) {
	out := Criteria{SortMode: "bogus"}.Normalize()
	assert.Equal(t, SortMode("bogus"), out.SortMode)
}

func TestBuildFacets(t *testing.T) {
	products := []Product{
		{ID: 1, Category: "Paints", Brand: "Asian Paints", Price: dec("3599.99"), Stock: 40},
		{ID: 2, Category: "Laptops", Brand: "HP", Price: dec("65999.99"), Stock: 0},
		{ID: 3, Category: "Paints", Brand: "Nerolac", Price: dec("899.99"), Stock: 3},
	}

	f := BuildFacets(products)

	assert.Equal(t, []FacetCount{
		{Name: CategoryAll, Count: 3},
		{Name: "Paints", Count: 2},
		{Name: "Laptops", Count: 1},
	}, f.Categories)
	assert.Equal(t, []FacetCount{
		{Name: "Asian Paints", Count: 1},
		{Name: "HP", Count: 1},
		{Name: "Nerolac", Count: 1},
	}, f.Brands)
	assert.True(t, dec("899.99").Equal(f.PriceRange.Min))
	assert.True(t, dec("65999.99").Equal(f.PriceRange.Max))
	assert.Equal(t, 2, f.InStock)
	assert.Equal(t, 1, f.OutOfStock)
}

func TestBuildFacets_Empty(t *testing.T) {
	f := BuildFacets(nil)
	assert.Equal(t, []FacetCount{{Name: CategoryAll, Count: 0}}, f.Categories)
	assert.NotNil(t, f.Brands)
	assert.Empty(t, f.Brands)
}
