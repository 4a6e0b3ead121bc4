package medusa

import (
	"context"
	"net/http"

	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// CartUpdate holds cart changes. Zero fields are omitted from the request.
type CartUpdate struct {
	Email           string            `json:"email,omitempty"`
	ShippingAddress *domain.Address   `json:"shipping_address,omitempty"`
	BillingAddress  *domain.Address   `json:"billing_address,omitempty"`
	RegionID        string            `json:"region_id,omitempty"`
	Discounts       []domain.Discount `json:"discounts,omitempty"`
}

type cartResponse struct {
	Cart *domain.Cart `json:"cart"`
}

func (c *Client) cartCall(ctx context.Context, op, method, path string, body any) (*domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, op, method, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// CreateCart creates a cart, in regionID when it is not empty.
func (c *Client) CreateCart(ctx context.Context, regionID string) (*domain.Cart, error) {
	body := map[string]string{}
	if regionID != "" {
		body["region_id"] = regionID
	}
	return c.cartCall(ctx, "create_cart", http.MethodPost, "/store/carts", body)
}

// GetCart fetches a cart.
func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, "get_cart", http.MethodGet, pathf("/store/carts/%s", cartID), nil)
}

// UpdateCart changes cart email, addresses, region or discounts.
func (c *Client) UpdateCart(ctx context.Context, cartID string, update CartUpdate) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, "update_cart", http.MethodPost, pathf("/store/carts/%s", cartID), update)
}

// AddLineItem adds quantity units of a variant.
func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("variant id", variantID); err != nil {
		return nil, err
	}
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	return c.cartCall(ctx, "add_line_item", http.MethodPost, pathf("/store/carts/%s/line-items", cartID), body)
}

// UpdateLineItem sets a line item's quantity.
func (c *Client) UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("line item id", lineItemID); err != nil {
		return nil, err
	}
	body := map[string]int{"quantity": quantity}
	return c.cartCall(ctx, "update_line_item", http.MethodPost, pathf("/store/carts/%s/line-items/%s", cartID, lineItemID), body)
}

// RemoveLineItem deletes a line item.
func (c *Client) RemoveLineItem(ctx context.Context, cartID, lineItemID string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("line item id", lineItemID); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, "remove_line_item", http.MethodDelete, pathf("/store/carts/%s/line-items/%s", cartID, lineItemID), nil)
}

// ApplyDiscount applies a discount code.
func (c *Client) ApplyDiscount(ctx context.Context, cartID, code string) (*domain.Cart, error) {
	if err := required("discount code", code); err != nil {
		return nil, err
	}
	return c.UpdateCart(ctx, cartID, CartUpdate{Discounts: []domain.Discount{{Code: code}}})
}

// RemoveDiscount removes a discount code.
func (c *Client) RemoveDiscount(ctx context.Context, cartID, code string) (*domain.Cart, error) {
	if err := required("cart id", cartID); err != nil {
		return nil, err
	}
	if err := required("discount code", code); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, "remove_discount", http.MethodDelete, pathf("/store/carts/%s/discounts/%s", cartID, code), nil)
}
