package domain

import "time"

// Customer is an authenticated storefront account.
type Customer struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Phone             string    `json:"phone,omitempty"`
	ShippingAddresses []Address `json:"shipping_addresses,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Registration holds the fields needed to create a customer.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// CustomerUpdate holds profile changes. Empty fields are left unchanged.
type CustomerUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
}
