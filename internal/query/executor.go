package query

import (
	"slices"

	"github.com/utafrali/storefront/internal/domain"
)

// Execute filters catalog with the criteria and orders the matches. Records
// that compare equal keep their catalog order. catalog is not modified and
// the returned slice is freshly allocated, empty rather than nil when
// nothing matches. The only error is ErrUnknownSortMode.
func Execute(catalog []domain.Product, c domain.Criteria) ([]domain.Product, error) {
	c = c.Normalize()

	compare, err := Comparator(c.SortMode)
	if err != nil {
		return nil, err
	}

	out := Filter(catalog, Build(c))
	slices.SortStableFunc(out, func(a, b domain.Product) int {
		return compare(&a, &b)
	})

	return out, nil
}
