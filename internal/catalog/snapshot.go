package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/slug"
	"github.com/utafrali/storefront/pkg/validator"
)

// Snapshot build errors.
var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrDuplicateID    = errors.New("duplicate product id")
)

// Snapshot is an immutable, validated view of the catalog.
type Snapshot struct {
	products []domain.Product
	byID     map[int64]int
	bySlug   map[string]int
	facets   domain.Facets
	version  uint64
	source   string
	loadedAt time.Time
}

// NewSnapshot validates products and builds a snapshot from private copies
// of them. Any invalid record or repeated id rejects the whole set. Slugs are
// derived from names and unique within the snapshot; a collision gets the
// product id appended, then a counter if that is taken too.
func NewSnapshot(products []domain.Product, source string, version uint64, loadedAt time.Time) (*Snapshot, error) {
	s := &Snapshot{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[int64]int, len(products)),
		bySlug:   make(map[string]int, len(products)),
		version:  version,
		source:   source,
		loadedAt: loadedAt,
	}

	for i := range products {
		p := cloneProduct(products[i])

		if err := validator.Validate(p); err != nil {
			return nil, fmt.Errorf("%w: index %d id %d: %w", ErrInvalidProduct, i, p.ID, err)
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, p.ID)
		}

		p.Slug = s.freeSlug(p.Name, p.ID)

		idx := len(s.products)
		s.products = append(s.products, p)
		s.byID[p.ID] = idx
		s.bySlug[p.Slug] = idx
	}

	s.facets = domain.BuildFacets(s.products)
	return s, nil
}

func (s *Snapshot) freeSlug(name string, id int64) string {
	candidate := slug.Generate(name)
	if _, taken := s.bySlug[candidate]; !taken && candidate != "" {
		return candidate
	}

	base := name + " " + strconv.FormatInt(id, 10)
	candidate = slug.Generate(base)
	for n := 2; ; n++ {
		if _, taken := s.bySlug[candidate]; !taken {
			return candidate
		}
		candidate = slug.Generate(base + " " + strconv.Itoa(n))
	}
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = slices.Clone(p.Images)
	p.Colors = slices.Clone(p.Colors)
	p.Features = slices.Clone(p.Features)
	p.Specs = maps.Clone(p.Specs)
	return p
}

// Products returns the records in catalog order. The slice is a copy; the
// records' nested slices and maps are shared and must not be modified.
func (s *Snapshot) Products() []domain.Product {
	return slices.Clone(s.products)
}

// Get returns the record with id.
func (s *Snapshot) Get(id int64) (domain.Product, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[idx], true
}

// GetBySlug returns the record with slug.
func (s *Snapshot) GetBySlug(slug string) (domain.Product, bool) {
	idx, ok := s.bySlug[slug]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[idx], true
}

// Facets returns the filter summary computed when the snapshot was built.
// The category and brand lists are copies.
func (s *Snapshot) Facets() domain.Facets {
	f := s.facets
	f.Categories = slices.Clone(f.Categories)
	f.Brands = slices.Clone(f.Brands)
	return f
}

// Version increases by one with every snapshot a store installs.
func (s *Snapshot) Version() uint64 { return s.version }

// Source names the source the records came from.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.products) }
