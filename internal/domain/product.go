package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product is a single catalog record. Records are immutable once a catalog
// snapshot has been built; nothing downstream of the store may modify them.
type Product struct {
	ID          int64             `json:"id" yaml:"id" validate:"gt=0"`
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Slug        string            `json:"slug" yaml:"-"`
	Description string            `json:"description" yaml:"description"`
	Category    string            `json:"category" yaml:"category" validate:"required"`
	Brand       string            `json:"brand" yaml:"brand" validate:"required"`
	Price       decimal.Decimal   `json:"price" yaml:"price" validate:"gte=0"`
	Discount    int               `json:"discount" yaml:"discount" validate:"gte=0,lte=100"`
	Rating      float64           `json:"rating" yaml:"rating" validate:"gte=0,lte=5"`
	ReviewCount int               `json:"review_count" yaml:"review_count" validate:"gte=0"`
	Stock       int               `json:"stock" yaml:"stock" validate:"gte=0"`
	Images      []string          `json:"images" yaml:"images" validate:"min=1,dive,url"`
	Colors      []string          `json:"colors" yaml:"colors"`
	Features    []string          `json:"features,omitempty" yaml:"features"`
	Specs       map[string]string `json:"specs,omitempty" yaml:"specs"`
}

// DiscountedPrice returns price * (1 - discount/100). It never exceeds Price.
func (p *Product) DiscountedPrice() decimal.Decimal {
	if p.Discount <= 0 {
		return p.Price
	}
	return p.Price.Mul(hundred.Sub(decimal.NewFromInt(int64(p.Discount)))).Div(hundred)
}

// OnSale reports whether the product carries a discount.
func (p *Product) OnSale() bool {
	return p.Discount > 0
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Popularity is the score used by the default ordering.
func (p *Product) Popularity() float64 {
	return p.Rating * float64(p.ReviewCount)
}
