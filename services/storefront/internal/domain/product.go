package domain

import (
	"strings"
	"time"
)

// Product is a catalog product.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Description string          `json:"description,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Images      []Image         `json:"images,omitempty"`
	Variants    []Variant       `json:"variants"`
	Options     []ProductOption `json:"options,omitempty"`
	Categories  []Category      `json:"categories,omitempty"`
	Collection  *Collection     `json:"collection,omitempty"`
	Tags        []Tag           `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Image is a product image.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Tag is a product tag.
type Tag struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Variant is a purchasable configuration of a product, such as a size.
type Variant struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	SKU               string        `json:"sku,omitempty"`
	ProductID         string        `json:"product_id,omitempty"`
	InventoryQuantity int           `json:"inventory_quantity"`
	Prices            []Price       `json:"prices,omitempty"`
	Options           []OptionValue `json:"options,omitempty"`
}

// Price is a variant price in minor units of one currency.
type Price struct {
	ID           string `json:"id"`
	CurrencyCode string `json:"currency_code"`
	Amount       int64  `json:"amount"`
}

// ProductOption is a configurable product dimension with its values.
type ProductOption struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Values []OptionValue `json:"values,omitempty"`
}

// OptionValue is one value of a product option.
type OptionValue struct {
	Value string `json:"value"`
}

// Category is a product category, possibly nested.
type Category struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Handle           string     `json:"handle"`
	ParentCategoryID string     `json:"parent_category_id,omitempty"`
	CategoryChildren []Category `json:"category_children,omitempty"`
}

// Collection groups products for merchandising.
type Collection struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// VariantPrice returns the variant's amount in currency (case-insensitive).
func VariantPrice(v Variant, currency string) (int64, bool) {
	for _, p := range v.Prices {
		if strings.EqualFold(p.CurrencyCode, currency) {
			return p.Amount, true
		}
	}
	return 0, false
}

// CheapestVariant returns the product variant with the lowest price in
// currency. Variants without a price in that currency are ignored.
func CheapestVariant(p Product, currency string) (*Variant, bool) {
	var cheapest *Variant
	var best int64
	for i := range p.Variants {
		amount, ok := VariantPrice(p.Variants[i], currency)
		if !ok {
			continue
		}
		if cheapest == nil || amount < best {
			cheapest, best = &p.Variants[i], amount
		}
	}
	return cheapest, cheapest != nil
}

// Sizes returns the values of the product's "size" option, if any.
func (p Product) Sizes() []string {
	for _, opt := range p.Options {
		if !strings.EqualFold(opt.Title, "size") {
			continue
		}
		sizes := make([]string, 0, len(opt.Values))
		for _, v := range opt.Values {
			sizes = append(sizes, v.Value)
		}
		return sizes
	}
	return nil
}

// ProductList is one page of products.
type ProductList struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
