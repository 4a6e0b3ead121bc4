package medusa

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

type orderResponse struct {
	Order *domain.Order `json:"order"`
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := required("order id", orderID); err != nil {
		return nil, err
	}
	var resp orderResponse
	if err := c.do(ctx, "get_order", http.MethodGet, pathf("/store/orders/%s", orderID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// LookupOrder finds a guest order by its display number and email.
func (c *Client) LookupOrder(ctx context.Context, displayID int, email string) (*domain.Order, error) {
	if displayID <= 0 {
		return nil, apperrors.InvalidInput("display id must be positive")
	}
	if err := required("email", email); err != nil {
		return nil, err
	}
	var resp orderResponse
	path := pathf("/store/orders/batch/customer/%s", strconv.Itoa(displayID))
	q := url.Values{"email": {email}}
	if err := c.do(ctx, "lookup_order", http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}
