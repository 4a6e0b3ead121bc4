package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/pkg/pagination"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/money"
)

// ProductView is a product priced in the session's currency.
type ProductView struct {
	domain.Product
	Sizes     []string `json:"sizes,omitempty"`
	FromPrice *Price   `json:"from_price,omitempty"`
}

// Price is an amount with its display string.
type Price struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

func newProductView(p domain.Product, currency string) ProductView {
	v := ProductView{Product: p, Sizes: p.Sizes()}
	if currency == "" {
		return v
	}
	if variant, ok := domain.CheapestVariant(p, currency); ok {
		amount, _ := domain.VariantPrice(*variant, currency)
		v.FromPrice = &Price{Amount: amount, Currency: strings.ToLower(currency), Formatted: money.Format(amount, currency)}
	}
	return v
}

func productViews(products []domain.Product, currency string) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p, currency))
	}
	return out
}

// currency is the session's display currency, or "" when it cannot be
// resolved. Catalog reads do not fail on it.
func (h *Handler) currency(r *http.Request) string {
	ctx := r.Context()
	s, err := h.sessions.Open(ctx, sessionIDFromContext(ctx))
	if err == nil {
		var code string
		if code, err = s.Currency(ctx); err == nil {
			return code
		}
	}
	logger.FromContext(ctx).DebugContext(ctx, "catalog prices omitted", slog.String("error", err.Error()))
	return ""
}

func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ListProducts handles GET /api/v1/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	q := r.URL.Query()
	list, err := h.catalog.ListProducts(r.Context(), medusa.ProductListParams{
		Limit:         page.Limit,
		Offset:        page.Offset,
		Q:             q.Get("q"),
		CategoryIDs:   queryList(r, "category_id"),
		CollectionIDs: queryList(r, "collection_id"),
		Tags:          queryList(r, "tags"),
		Order:         q.Get("order"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	views := productViews(list.Products, h.currency(r))
	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(views, list.Count, page.Offset, page.Limit))
}

// GetProduct handles GET /api/v1/products/{idOrHandle}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "idOrHandle"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newProductView(*product, h.currency(r)))
}

// SearchProducts handles GET /api/v1/search?q=
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("q is required"), h.logger)
		return
	}
	products, err := h.catalog.SearchProducts(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, productViews(products, h.currency(r)))
}

// ListCategories handles GET /api/v1/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	categories, err := h.catalog.ListCategories(r.Context(), medusa.CategoryListParams{
		Limit:            page.Limit,
		Offset:           page.Offset,
		ParentCategoryID: r.URL.Query().Get("parent_category_id"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, category)
}

// ListCollections handles GET /api/v1/collections
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	collections, err := h.catalog.ListCollections(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collections)
}

// GetCollection handles GET /api/v1/collections/{id}
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.catalog.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collection)
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.catalog.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// LookupOrder handles GET /api/v1/orders/lookup?display_id=&email=
func (h *Handler) LookupOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	displayID, err := strconv.Atoi(q.Get("display_id"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("display_id must be a number"), h.logger)
		return
	}
	order, err := h.catalog.LookupOrder(r.Context(), displayID, q.Get("email"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// RegionRequest selects the session's region.
type RegionRequest struct {
	RegionID string `json:"region_id" validate:"required"`
}

// ListRegions handles GET /api/v1/regions
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.sessions.Regions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, regions)
}

// GetRegion handles GET /api/v1/region
func (h *Handler) GetRegion(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	region, err := s.ActiveRegion(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, region)
}

// SetRegion handles PUT /api/v1/region
func (h *Handler) SetRegion(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	region, view, err := s.SetRegion(r.Context(), req.RegionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"region": region,
		"cart":   newCartResponse(view),
	})
}
