package query

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
)

// ErrUnknownSortMode is returned for a sort mode outside domain.ValidSortModes.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// Compare orders two records. Ties return 0.
type Compare func(a, b *domain.Product) int

func byPriceAsc(a, b *domain.Product) int {
	return a.DiscountedPrice().Cmp(b.DiscountedPrice())
}

func byPriceDesc(a, b *domain.Product) int {
	return b.DiscountedPrice().Cmp(a.DiscountedPrice())
}

// Newer records carry larger ids.
func byNewest(a, b *domain.Product) int {
	return cmp.Compare(b.ID, a.ID)
}

func byRating(a, b *domain.Product) int {
	return cmp.Compare(b.Rating, a.Rating)
}

func byPopularity(a, b *domain.Product) int {
	return cmp.Compare(b.Popularity(), a.Popularity())
}

// Comparator returns the ordering for mode. UI aliases and the empty mode
// are accepted.
func Comparator(mode domain.SortMode) (Compare, error) {
	m, ok := domain.ParseSortMode(string(mode))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortMode, mode)
	}

	switch m {
	case domain.SortPriceAsc:
		return byPriceAsc, nil
	case domain.SortPriceDesc:
		return byPriceDesc, nil
	case domain.SortNewest:
		return byNewest, nil
	case domain.SortRating:
		return byRating, nil
	default:
		return byPopularity, nil
	}
}
