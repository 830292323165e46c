package domain

import (
	"github.com/shopspring/decimal"
)

// QueryResult is the ordered outcome of a catalog query.
type QueryResult struct {
	Products       []Product `json:"products"`
	Total          int       `json:"total"`
	Criteria       Criteria  `json:"criteria"`
	CatalogVersion uint64    `json:"catalog_version"`
	TookMs         int64     `json:"took_ms"`
}

// FacetCount is one selectable filter value and how many records carry it.
type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceBounds is the list price span of a catalog.
type PriceBounds struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Facets summarizes the filter options a catalog offers.
type Facets struct {
	Categories []FacetCount `json:"categories"`
	Brands     []FacetCount `json:"brands"`
	PriceRange PriceBounds  `json:"price_range"`
	InStock    int          `json:"in_stock"`
	OutOfStock int          `json:"out_of_stock"`
}

// BuildFacets derives facets from products. Category and brand lists keep
// the order in which values first appear; the category list starts with
// "all" counting every record.
func BuildFacets(products []Product) Facets {
	f := Facets{
		Categories: []FacetCount{{Name: CategoryAll, Count: len(products)}},
		Brands:     []FacetCount{},
	}

	catIdx := make(map[string]int)
	brandIdx := make(map[string]int)

	for i := range products {
		p := &products[i]

		if idx, ok := catIdx[p.Category]; ok {
			f.Categories[idx].Count++
		} else {
			catIdx[p.Category] = len(f.Categories)
			f.Categories = append(f.Categories, FacetCount{Name: p.Category, Count: 1})
		}

		if idx, ok := brandIdx[p.Brand]; ok {
			f.Brands[idx].Count++
		} else {
			brandIdx[p.Brand] = len(f.Brands)
			f.Brands = append(f.Brands, FacetCount{Name: p.Brand, Count: 1})
		}

		if i == 0 || p.Price.LessThan(f.PriceRange.Min) {
			f.PriceRange.Min = p.Price
		}
		if i == 0 || p.Price.GreaterThan(f.PriceRange.Max) {
			f.PriceRange.Max = p.Price
		}

		if p.InStock() {
			f.InStock++
		} else {
			f.OutOfStock++
		}
	}

	return f
}
