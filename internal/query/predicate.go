// Package query filters and orders catalog records. Every function here is
// pure: inputs are never modified and results are derived from scratch on
// each call.
package query

import (
	"slices"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// Predicate decides whether a record belongs to a result.
type Predicate func(p *domain.Product) bool

func matchAll(*domain.Product) bool { return true }

// All combines predicates with logical AND. With no arguments it matches
// every record.
func All(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return matchAll
	case 1:
		return preds[0]
	}
	return func(p *domain.Product) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}

// InCategory matches records whose category equals category ignoring case.
// The "all" sentinel and the empty string match everything.
func InCategory(category string) Predicate {
	if category == "" || strings.EqualFold(category, domain.CategoryAll) {
		return matchAll
	}
	return func(p *domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	}
}

// PriceWithin matches records whose list price lies in r, bounds inclusive.
func PriceWithin(r domain.PriceRange) Predicate {
	return func(p *domain.Product) bool {
		return r.Contains(p.Price)
	}
}

// BrandIn matches records whose brand is exactly one of brands. An empty set
// places no restriction.
func BrandIn(brands []string) Predicate {
	if len(brands) == 0 {
		return matchAll
	}
	set := slices.Clone(brands)
	return func(p *domain.Product) bool {
		return slices.Contains(set, p.Brand)
	}
}

// MatchesText matches records whose name, description, category or brand
// contains q ignoring case. Blank input matches everything.
func MatchesText(q string) Predicate {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return matchAll
	}
	return func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			strings.Contains(strings.ToLower(p.Brand), q)
	}
}

// OnSale matches discounted records.
func OnSale() Predicate {
	return func(p *domain.Product) bool {
		return p.OnSale()
	}
}

// MinRating matches records rated at least min.
func MinRating(min float64) Predicate {
	return func(p *domain.Product) bool {
		return p.Rating >= min
	}
}

// Build turns criteria into a single predicate. Only the active conditions
// are included.
func Build(c domain.Criteria) Predicate {
	var preds []Predicate

	if !c.AllCategories() {
		preds = append(preds, InCategory(c.Category))
	}
	if c.PriceRange.Bounded() {
		preds = append(preds, PriceWithin(c.PriceRange))
	}
	if len(c.Brands) > 0 {
		preds = append(preds, BrandIn(c.Brands))
	}
	if strings.TrimSpace(c.SearchQuery) != "" {
		preds = append(preds, MatchesText(c.SearchQuery))
	}
	if c.OnSale {
		preds = append(preds, OnSale())
	}

	return All(preds...)
}

// Filter returns the records matching pred in their original order. The
// result is never nil.
func Filter(products []domain.Product, pred Predicate) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for i := range products {
		if pred(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}
