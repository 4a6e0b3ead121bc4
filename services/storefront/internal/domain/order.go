package domain

import "time"

// Order is a completed cart.
type Order struct {
	ID                string           `json:"id"`
	DisplayID         int              `json:"display_id"`
	Status            string           `json:"status"`
	FulfillmentStatus string           `json:"fulfillment_status,omitempty"`
	PaymentStatus     string           `json:"payment_status,omitempty"`
	Email             string           `json:"email"`
	CurrencyCode      string           `json:"currency_code,omitempty"`
	Items             []LineItem       `json:"items"`
	ShippingAddress   *Address         `json:"shipping_address,omitempty"`
	BillingAddress    *Address         `json:"billing_address,omitempty"`
	ShippingMethods   []ShippingMethod `json:"shipping_methods,omitempty"`
	Subtotal          int64            `json:"subtotal"`
	TaxTotal          int64            `json:"tax_total"`
	ShippingTotal     int64            `json:"shipping_total"`
	DiscountTotal     int64            `json:"discount_total"`
	Total             int64            `json:"total"`
	CreatedAt         time.Time        `json:"created_at"`
}

// OrderList is one page of a customer's orders.
type OrderList struct {
	Orders []Order `json:"orders"`
	Count  int     `json:"count"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}
