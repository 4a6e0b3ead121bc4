package http

import (
	"net/http"

	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
)

// ShippingMethodRequest selects a shipping option for the cart.
type ShippingMethodRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

// PaymentSessionRequest initialises payment. The body is optional and
// ProviderID defaults to the manual provider. Data, when present, is stored
// on the payment session.
type PaymentSessionRequest struct {
	ProviderID string         `json:"provider_id"`
	Data       map[string]any `json:"data"`
}

// ShippingOptions handles GET /api/v1/checkout/shipping-options
func (h *Handler) ShippingOptions(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	options, err := s.ShippingOptions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	type optionView struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Amount    int64  `json:"amount"`
		Formatted string `json:"formatted_amount"`
	}
	out := make([]optionView, 0, len(options))
	for _, o := range options {
		formatted, err := s.FormatPrice(r.Context(), o.Amount)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		out = append(out, optionView{ID: o.ID, Name: o.Name, Amount: o.Amount, Formatted: formatted})
	}
	httputil.WriteData(w, http.StatusOK, out)
}

// SelectShippingMethod handles POST /api/v1/checkout/shipping-method
func (h *Handler) SelectShippingMethod(w http.ResponseWriter, r *http.Request) {
	var req ShippingMethodRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.SelectShippingOption(r.Context(), req.OptionID)
	h.writeCart(w, r, http.StatusOK, view, err)
}

// InitPayment handles POST /api/v1/checkout/payment-session
func (h *Handler) InitPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentSessionRequest
	if r.ContentLength != 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	view, err := s.InitPayment(r.Context(), req.ProviderID)
	if err == nil && len(req.Data) > 0 {
		view, err = s.UpdatePayment(r.Context(), req.ProviderID, req.Data)
	}
	h.writeCart(w, r, http.StatusOK, view, err)
}

// CompleteCheckout handles POST /api/v1/checkout/complete
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	order, err := s.Complete(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}
