package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/pagination"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/service"
)

// CatalogHandler handles HTTP requests for the demo catalog.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Price       int64    `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required,max=50"`
	ImageURL    string   `json:"image_url" validate:"required,max=2048"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,max=2048"`
	Material    string   `json:"material" validate:"max=200"`
	IsPreOrder  bool     `json:"is_pre_order"`
	InStock     *bool    `json:"in_stock"`
	Sizes       []string `json:"sizes" validate:"omitempty,max=20,dive,min=1,max=20"`
}

// CreateOrderRequest is the JSON request body for placing an order.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"max=50"`
	ShippingAddress string             `json:"shipping_address" validate:"required,max=1000"`
	PaymentMethod   string             `json:"payment_method" validate:"max=50"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// OrderItemRequest is one line of CreateOrderRequest.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
	Size      string `json:"size" validate:"max=20"`
}

// UpdateStatusRequest is the JSON request body for PATCH /api/orders/{id}/status.
type UpdateStatusRequest struct {
	Status *string `json:"status" validate:"required,min=1,max=32"`
}

// PaymentRequest is the JSON request body for the simulated payment.
type PaymentRequest struct {
	Amount  int64  `json:"amount" validate:"gte=0"`
	OrderID string `json:"order_id"`
}

// PaymentFailure is the body of a declined simulated payment.
type PaymentFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Handlers ---

// ListProducts handles GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	filter := domain.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if v := r.URL.Query().Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("in_stock must be true or false"), h.logger)
			return
		}
		filter.InStock = &inStock
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(products, total, page.Offset, page.Limit))
}

// GetProduct handles GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	product, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Images:      req.Images,
		Material:    req.Material,
		IsPreOrder:  req.IsPreOrder,
		InStock:     inStock,
		Sizes:       req.Sizes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

// ListOrders handles GET /api/orders
func (h *CatalogHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	orders, total, err := h.service.ListOrders(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(orders, total, page.Offset, page.Limit))
}

// GetOrder handles GET /api/orders/{id}
func (h *CatalogHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// CreateOrder handles POST /api/orders
func (h *CatalogHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size})
	}
	order, err := h.service.CreateOrder(r.Context(), &service.CreateOrderInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// UpdateOrderStatus handles PATCH /api/orders/{id}/status
func (h *CatalogHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), *req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// SimulatePayment handles POST /api/payment/simulate. The result is written
// without the data envelope; a declined charge answers 400.
func (h *CatalogHandler) SimulatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.SimulatePayment(r.Context(), service.PaymentInput{Amount: req.Amount, OrderID: req.OrderID})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.Is(err, apperrors.ErrPaymentFailed) && errors.As(err, &appErr) {
			httputil.WriteJSON(w, http.StatusBadRequest, PaymentFailure{Success: false, Message: appErr.Message})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
