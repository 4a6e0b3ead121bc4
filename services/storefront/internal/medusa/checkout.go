package medusa

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// ListShippingOptions returns the shipping options available to a cart.
func (c *Client) ListShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	var resp struct {
		ShippingOptions []domain.ShippingOption `json:"shipping_options"`
	}
	q := url.Values{"cart_id": {cartID}}
	if err := c.do(ctx, "list_shipping_options", http.MethodGet, "/store/shipping-options", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.ShippingOptions, nil
}

// AddShippingMethod attaches a shipping option to a cart.
func (c *Client) AddShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("shipping option id", optionID); err != nil {
		return nil, err
	}
	body := map[string]string{"option_id": optionID}
	return c.cartCall(ctx, "add_shipping_method", http.MethodPost, pathf("/store/carts/%s/shipping-methods", cartID), body)
}

// CreatePaymentSessions initialises a payment session for every provider
// available to the cart.
func (c *Client) CreatePaymentSessions(ctx context.Context, cartID string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, "create_payment_sessions", http.MethodPost, pathf("/store/carts/%s/payment-sessions", cartID), nil)
}

// SelectPaymentSession selects the provider used to pay for the cart.
func (c *Client) SelectPaymentSession(ctx context.Context, cartID, providerID string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("provider id", providerID); err != nil {
		return nil, err
	}
	body := map[string]string{"provider_id": providerID}
	return c.cartCall(ctx, "select_payment_session", http.MethodPost, pathf("/store/carts/%s/payment-session", cartID), body)
}

// UpdatePaymentSession sends provider-specific data for a payment session.
func (c *Client) UpdatePaymentSession(ctx context.Context, cartID, providerID string, data map[string]any) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("provider id", providerID); err != nil {
		return nil, err
	}
	body := map[string]any{"data": data}
	return c.cartCall(ctx, "update_payment_session", http.MethodPost, pathf("/store/carts/%s/payment-sessions/%s", cartID, providerID), body)
}

// CompleteCart places the order. When the backend answers with a cart
// instead of an order, payment still needs attention and a 409 is returned.
func (c *Client) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	var resp struct {
		Type  string        `json:"type"`
		Order *domain.Order `json:"order"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.do(ctx, "complete_cart", http.MethodPost, pathf("/store/carts/%s/complete", cartID), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil || (resp.Type != "" && resp.Type != "order") {
		msg := resp.Error.Message
		if msg == "" {
			msg = "cart could not be completed"
		}
		return nil, apperrors.Conflict(msg)
	}
	return resp.Order, nil
}
