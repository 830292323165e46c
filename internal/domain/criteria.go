package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAll is the category sentinel that disables category filtering.
const CategoryAll = "all"

// SortMode selects the ordering of a query result.
type SortMode string

// Sort modes.
const (
	SortPopularity SortMode = "popularity"
	SortPriceAsc   SortMode = "price-asc"
	SortPriceDesc  SortMode = "price-desc"
	SortNewest     SortMode = "newest"
	SortRating     SortMode = "rating"
)

// Identifiers used by the storefront UI for the price orderings.
var sortAliases = map[string]SortMode{
	"price-low-high": SortPriceAsc,
	"price-high-low": SortPriceDesc,
}

// ValidSortModes returns the canonical sort modes.
func ValidSortModes() []SortMode {
	return []SortMode{SortPopularity, SortPriceAsc, SortPriceDesc, SortNewest, SortRating}
}

// ParseSortMode resolves s to a canonical sort mode. Empty input yields
// SortPopularity and UI aliases are accepted. The second return is false for
// unknown values.
func ParseSortMode(s string) (SortMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortPopularity, true
	}
	if m, ok := sortAliases[s]; ok {
		return m, true
	}
	for _, m := range ValidSortModes() {
		if string(m) == s {
			return m, true
		}
	}
	return SortMode(s), false
}

// PriceRange is an inclusive price interval. An invalid (null) bound is
// unbounded on that side.
type PriceRange struct {
	Min decimal.NullDecimal `json:"min"`
	Max decimal.NullDecimal `json:"max"`
}

// Contains reports whether price lies within the range.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	if r.Min.Valid && price.LessThan(r.Min.Decimal) {
		return false
	}
	if r.Max.Valid && price.GreaterThan(r.Max.Decimal) {
		return false
	}
	return true
}

// Bounded reports whether either bound is set to something narrower than
// [0, unbounded).
func (r PriceRange) Bounded() bool {
	return (r.Min.Valid && r.Min.Decimal.IsPositive()) || r.Max.Valid
}

// Criteria describes one catalog query. It is passed by value and never
// retained.
type Criteria struct {
	Category    string     `json:"category"`
	PriceRange  PriceRange `json:"price_range"`
	Brands      []string   `json:"brands"`
	SortMode    SortMode   `json:"sort"`
	SearchQuery string     `json:"q"`
	OnSale      bool       `json:"on_sale"`
}

// DefaultCriteria returns criteria that match the whole catalog ordered by
// popularity.
func DefaultCriteria() Criteria {
	return Criteria{
		Category: CategoryAll,
		PriceRange: PriceRange{
			Min: decimal.NewNullDecimal(decimal.Zero),
		},
		Brands:   []string{},
		SortMode: SortPopularity,
	}
}

// Normalize returns a copy with defaults applied: an empty category becomes
// "all", the sort mode is resolved through its aliases, the search query is
// trimmed and duplicate or blank brands are dropped. Unknown sort modes are
// left in place for the caller to reject.
func (c Criteria) Normalize() Criteria {
	out := c

	out.Category = strings.TrimSpace(out.Category)
	if out.Category == "" {
		out.Category = CategoryAll
	}

	if m, ok := ParseSortMode(string(out.SortMode)); ok {
		out.SortMode = m
	}

	out.SearchQuery = strings.TrimSpace(out.SearchQuery)

	brands := make([]string, 0, len(c.Brands))
	seen := make(map[string]struct{}, len(c.Brands))
	for _, b := range c.Brands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		brands = append(brands, b)
	}
	out.Brands = brands

	return out
}

// AllCategories reports whether the criteria leave category unrestricted.
func (c Criteria) AllCategories() bool {
	return c.Category == "" || strings.EqualFold(c.Category, CategoryAll)
}
