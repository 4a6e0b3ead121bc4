package domain

import (
	"slices"
	"time"
)

// Product categories of the demo catalog.
const (
	CategoryRings     = "rings"
	CategoryNecklaces = "necklaces"
	CategoryBracelets = "bracelets"
	CategoryEarrings  = "earrings"
)

// Product is a catalog item. Price is in minor units of the catalog currency.
type Product struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Images      []string  `json:"images"`
	Material    string    `json:"material,omitempty"`
	IsPreOrder  bool      `json:"is_pre_order"`
	InStock     bool      `json:"in_stock"`
	Sizes       []string  `json:"sizes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Purchasable reports whether the product can be ordered now or pre-ordered.
func (p *Product) Purchasable() bool {
	return p.InStock || p.IsPreOrder
}

// HasSize reports whether size is offered. Products without sizes accept
// only the empty size.
func (p *Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return size == ""
	}
	return slices.Contains(p.Sizes, size)
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string
	InStock  *bool
	Limit    int
	Offset   int
}

// Matches reports whether p passes the filter's predicates. Paging is not
// applied here.
func (f ProductFilter) Matches(p *Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.InStock != nil && p.InStock != *f.InStock {
		return false
	}
	return true
}
