package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/storefront"
)

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a variant to the cart.
type AddItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
}

// UpdateQuantityRequest is the JSON request body for changing a quantity.
// Zero or below removes the line item.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=100"`
}

// EmailRequest is the JSON request body for setting the cart email.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AddressRequest is the JSON request body for a postal address.
type AddressRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	Company     string `json:"company" validate:"max=200"`
	Address1    string `json:"address_1" validate:"required,max=200"`
	Address2    string `json:"address_2" validate:"max=200"`
	City        string `json:"city" validate:"required,max=100"`
	Province    string `json:"province" validate:"max=100"`
	CountryCode string `json:"country_code" validate:"required,len=2"`
	PostalCode  string `json:"postal_code" validate:"max=20"`
	Phone       string `json:"phone" validate:"max=40"`
}

func (a AddressRequest) toDomain() domain.Address {
	return domain.Address{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Company:     a.Company,
		Address1:    a.Address1,
		Address2:    a.Address2,
		City:        a.City,
		Province:    a.Province,
		CountryCode: a.CountryCode,
		PostalCode:  a.PostalCode,
		Phone:       a.Phone,
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart. ?refresh=true refetches the cart first.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		view, err := s.Refresh(r.Context())
		h.writeCart(w, r, http.StatusOK, view, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(s.View()))
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.Clear(r.Context())
	h.writeCart(w, r, http.StatusOK, view, err)
}

// AddItem handles POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.AddItem(r.Context(), req.VariantID, req.Quantity)
	h.writeCart(w, r, http.StatusOK, view, err)
}

// UpdateItem handles PUT /api/v1/cart/items/{lineItemId}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.UpdateItem(r.Context(), chi.URLParam(r, "lineItemId"), req.Quantity)
	h.writeCart(w, r, http.StatusOK, view, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{lineItemId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.RemoveItem(r.Context(), chi.URLParam(r, "lineItemId"))
	h.writeCart(w, r, http.StatusOK, view, err)
}

func lineItemKey(r *http.Request) domain.LineItemKey {
	return domain.LineItemKey{
		ProductID: chi.URLParam(r, "productId"),
		Size:      r.URL.Query().Get("size"),
	}
}

// UpdateItemByKey handles PUT /api/v1/cart/items/by-key/{productId}?size=
func (h *Handler) UpdateItemByKey(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.UpdateItemByKey(r.Context(), lineItemKey(r), req.Quantity)
	h.writeCart(w, r, http.StatusOK, view, err)
}

// RemoveItemByKey handles DELETE /api/v1/cart/items/by-key/{productId}?size=
func (h *Handler) RemoveItemByKey(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.RemoveItemByKey(r.Context(), lineItemKey(r))
	h.writeCart(w, r, http.StatusOK, view, err)
}

// ApplyDiscount handles POST /api/v1/cart/discounts/{code}
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.ApplyDiscount(r.Context(), chi.URLParam(r, "code"))
	h.writeCart(w, r, http.StatusOK, view, err)
}

// RemoveDiscount handles DELETE /api/v1/cart/discounts/{code}
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.RemoveDiscount(r.Context(), chi.URLParam(r, "code"))
	h.writeCart(w, r, http.StatusOK, view, err)
}

// SetEmail handles PUT /api/v1/cart/email
func (h *Handler) SetEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.SetEmail(r.Context(), req.Email)
	h.writeCart(w, r, http.StatusOK, view, err)
}

// SetShippingAddress handles PUT /api/v1/cart/shipping-address
func (h *Handler) SetShippingAddress(w http.ResponseWriter, r *http.Request) {
	h.setAddress(w, r, (*storefront.Session).SetShippingAddress)
}

// SetBillingAddress handles PUT /api/v1/cart/billing-address
func (h *Handler) SetBillingAddress(w http.ResponseWriter, r *http.Request) {
	h.setAddress(w, r, (*storefront.Session).SetBillingAddress)
}

type addressSetter func(*storefront.Session, context.Context, domain.Address) (storefront.CartView, error)

func (h *Handler) setAddress(w http.ResponseWriter, r *http.Request, set addressSetter) {
	var req AddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := set(s, r.Context(), req.toDomain())
	h.writeCart(w, r, http.StatusOK, view, err)
}
