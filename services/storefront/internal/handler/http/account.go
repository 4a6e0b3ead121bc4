package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/pagination"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"max=40"`
}

// LoginRequest is the JSON request body for signing in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateCustomerRequest is the JSON request body for a profile change.
type UpdateCustomerRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=40"`
	Password  string `json:"password" validate:"omitempty,min=8,max=128"`
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.Register(r.Context(), domain.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, customer)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.Logout(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GetCustomer handles GET /api/v1/customer
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer := s.Customer()
	if customer == nil {
		httputil.WriteError(w, r, apperrors.Unauthorized("not signed in"), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /api/v1/customer
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomerRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.UpdateProfile(r.Context(), domain.CustomerUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// AddAddress handles POST /api/v1/customer/addresses
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.AddAddress(r.Context(), req.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, customer)
}

// UpdateAddress handles PUT /api/v1/customer/addresses/{addressId}
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.UpdateAddress(r.Context(), chi.URLParam(r, "addressId"), req.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// DeleteAddress handles DELETE /api/v1/customer/addresses/{addressId}
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	customer, err := s.DeleteAddress(r.Context(), chi.URLParam(r, "addressId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}

// ListOrders handles GET /api/v1/customer/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	page := pagination.FromRequest(r)
	list, err := s.Orders(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(list.Orders, list.Count, page.Offset, page.Limit))
}
