package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/money"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/storefront"
)

// Catalog is the read-only part of the commerce backend served as-is.
// *medusa.Client implements it.
type Catalog interface {
	ListProducts(ctx context.Context, params medusa.ProductListParams) (*domain.ProductList, error)
	GetProduct(ctx context.Context, idOrHandle string) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	ListCategories(ctx context.Context, params medusa.CategoryListParams) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCollections(ctx context.Context, limit, offset int) ([]domain.Collection, error)
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	LookupOrder(ctx context.Context, displayID int, email string) (*domain.Order, error)
}

// Handler serves the storefront API.
type Handler struct {
	sessions *storefront.Service
	catalog  Catalog
	logger   *slog.Logger
}

// NewHandler creates a storefront handler.
func NewHandler(sessions *storefront.Service, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalog,
		logger:   logger,
	}
}

// session opens the container of the request's session. On failure it
// writes the error and returns nil.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *storefront.Session {
	s, err := h.sessions.Open(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil
	}
	return s
}

// CartResponse is the cart as rendered by the storefront.
type CartResponse struct {
	State     storefront.CartState `json:"state"`
	Version   uint64               `json:"version"`
	ItemCount int                  `json:"item_count"`
	Cart      *domain.Cart         `json:"cart"`
	Totals    *FormattedTotals     `json:"formatted_totals,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// FormattedTotals holds display strings for the cart totals.
type FormattedTotals struct {
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Shipping string `json:"shipping"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func newCartResponse(view storefront.CartView) CartResponse {
	resp := CartResponse{
		State:     view.State,
		Version:   view.Version,
		ItemCount: view.ItemCount(),
		Cart:      view.Cart,
	}
	if view.Err != nil {
		resp.Error = view.Err.Error()
	}
	if c := view.Cart; c != nil {
		code := c.CurrencyCode()
		resp.Totals = &FormattedTotals{
			Currency: code,
			Subtotal: money.Format(c.Subtotal, code),
			Tax:      money.Format(c.TaxTotal, code),
			Shipping: money.Format(c.ShippingTotal, code),
			Discount: money.Format(c.DiscountTotal, code),
			Total:    money.Format(c.Total, code),
		}
	}
	return resp
}

// writeCart answers a cart operation. A failed mutation still reports the
// error with its own status; the snapshot is available from GET /cart.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, view storefront.CartView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, newCartResponse(view))
}
