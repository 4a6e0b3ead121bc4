package medusa

import (
	"context"
	"net/http"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

type customerResponse struct {
	Customer *domain.Customer `json:"customer"`
}

func (c *Client) customerCall(ctx context.Context, op, method, path string, body any) (*domain.Customer, error) {
	var resp customerResponse
	if err := c.do(ctx, op, method, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Customer, nil
}

// Register creates a customer account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.Customer, error) {
	return c.customerCall(ctx, "register", http.MethodPost, "/store/customers", reg)
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/store/auth/customer/emailpass", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", apperrors.Remote(http.StatusBadGateway, "", "medusa: login response carried no token")
	}
	return resp.Token, nil
}

// Logout ends the remote session for the token in ctx.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodDelete, "/store/auth", nil, nil, nil)
}

// GetSession returns the customer owning the token in ctx.
func (c *Client) GetSession(ctx context.Context) (*domain.Customer, error) {
	return c.customerCall(ctx, "get_session", http.MethodGet, "/store/customers/me", nil)
}

// UpdateCustomer changes the authenticated customer's profile.
func (c *Client) UpdateCustomer(ctx context.Context, update domain.CustomerUpdate) (*domain.Customer, error) {
	return c.customerCall(ctx, "update_customer", http.MethodPost, "/store/customers/me", update)
}

// AddAddress adds a shipping address to the authenticated customer.
func (c *Client) AddAddress(ctx context.Context, addr domain.Address) (*domain.Customer, error) {
	body := map[string]domain.Address{"address": addr}
	return c.customerCall(ctx, "add_address", http.MethodPost, "/store/customers/me/addresses", body)
}

// UpdateAddress replaces one of the customer's addresses.
func (c *Client) UpdateAddress(ctx context.Context, addressID string, addr domain.Address) (*domain.Customer, error) {
	if err := required("address id", addressID); err != nil {
		return nil, err
	}
	return c.customerCall(ctx, "update_address", http.MethodPost, pathf("/store/customers/me/addresses/%s", addressID), addr)
}

// DeleteAddress removes one of the customer's addresses.
func (c *Client) DeleteAddress(ctx context.Context, addressID string) (*domain.Customer, error) {
	if err := required("address id", addressID); err != nil {
		return nil, err
	}
	return c.customerCall(ctx, "delete_address", http.MethodDelete, pathf("/store/customers/me/addresses/%s", addressID), nil)
}

// ListOrders returns a page of the authenticated customer's orders.
func (c *Client) ListOrders(ctx context.Context, limit, offset int) (*domain.OrderList, error) {
	var resp domain.OrderList
	if err := c.do(ctx, "list_orders", http.MethodGet, "/store/customers/me/orders", pageQuery(limit, offset), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		resp.Orders = []domain.Order{}
	}
	resp.Limit, resp.Offset = limit, offset
	return &resp, nil
}
