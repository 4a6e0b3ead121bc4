package domain

import "strings"

// Cart is the remote cart as returned by the commerce backend. Totals are
// in minor units and are never computed locally.
type Cart struct {
	ID              string           `json:"id"`
	Email           string           `json:"email,omitempty"`
	Items           []LineItem       `json:"items"`
	RegionID        string           `json:"region_id,omitempty"`
	Region          *Region          `json:"region,omitempty"`
	CustomerID      string           `json:"customer_id,omitempty"`
	ShippingAddress *Address         `json:"shipping_address,omitempty"`
	BillingAddress  *Address         `json:"billing_address,omitempty"`
	ShippingMethods []ShippingMethod `json:"shipping_methods,omitempty"`
	PaymentSession  *PaymentSession  `json:"payment_session,omitempty"`
	Discounts       []Discount       `json:"discounts,omitempty"`
	Subtotal        int64            `json:"subtotal"`
	TaxTotal        int64            `json:"tax_total"`
	ShippingTotal   int64            `json:"shipping_total"`
	DiscountTotal   int64            `json:"discount_total"`
	Total           int64            `json:"total"`
}

// ItemCount returns the total quantity across all line items.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CurrencyCode returns the cart's region currency, lower-cased, or "".
func (c *Cart) CurrencyCode() string {
	if c == nil || c.Region == nil {
		return ""
	}
	return strings.ToLower(c.Region.CurrencyCode)
}

// FindItem returns the line item matching key.
func (c *Cart) FindItem(key LineItemKey) (*LineItem, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// LineItem is one cart entry referencing a variant.
type LineItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	ProductID   string   `json:"product_id,omitempty"`
	VariantID   string   `json:"variant_id,omitempty"`
	Variant     *Variant `json:"variant,omitempty"`
	Quantity    int      `json:"quantity"`
	UnitPrice   int64    `json:"unit_price"`
	Subtotal    int64    `json:"subtotal"`
	Total       int64    `json:"total"`
}

// LineItemKey identifies a line item on the client side: a product and,
// for sized products, the chosen size.
type LineItemKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
}

// Key returns the client-side identity of the line item.
func (li LineItem) Key() LineItemKey {
	return LineItemKey{ProductID: li.productID(), Size: li.Size()}
}

// Size is the first option value of the variant, or "".
func (li LineItem) Size() string {
	if li.Variant == nil || len(li.Variant.Options) == 0 {
		return ""
	}
	return li.Variant.Options[0].Value
}

func (li LineItem) productID() string {
	switch {
	case li.ProductID != "":
		return li.ProductID
	case li.Variant != nil && li.Variant.ProductID != "":
		return li.Variant.ProductID
	case li.Variant != nil && strings.HasPrefix(li.Variant.ID, "variant_"):
		return "prod_" + strings.TrimPrefix(li.Variant.ID, "variant_")
	}
	return li.ID
}

// Discount is a promotion code applied to a cart.
type Discount struct {
	Code string `json:"code"`
}

// Address is a postal address on a cart or customer.
type Address struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province,omitempty"`
	CountryCode string `json:"country_code"`
	PostalCode  string `json:"postal_code"`
	Phone       string `json:"phone,omitempty"`
}

// ShippingOption is a delivery choice offered for a cart.
type ShippingOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// ShippingMethod is a shipping option attached to a cart.
type ShippingMethod struct {
	ID             string         `json:"id"`
	ShippingOption ShippingOption `json:"shipping_option"`
	Price          int64          `json:"price"`
}

// PaymentSession is the selected payment provider session on a cart.
type PaymentSession struct {
	ID         string         `json:"id"`
	ProviderID string         `json:"provider_id"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
}
