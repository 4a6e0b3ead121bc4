package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/jewelrycommerce/pkg/health"
	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/middleware"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/event"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/payment"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository/memory"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/service"
)

func newTestRouter(t *testing.T, roll float64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := payment.NewSimulator(0, payment.DefaultFailureRate, payment.WithRandom(func() float64 { return roll }))
	svc := service.NewCatalogService(memory.NewProductRepository(), memory.NewOrderRepository(),
		event.NewProducer(nil, logger), sim, logger)
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)

	return NewRouter(NewCatalogHandler(svc, logger), RouterConfig{
		ServiceName: "catalog-test",
		Health:      health.NewHandler(),
		Logger:      logger,
		CORS:        middleware.DefaultCORSConfig(),
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Data  T                       `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestListProducts(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[httputil.ListResponse[domain.Product]](t, rec)
	assert.Equal(t, 8, all.Data.Count)
	assert.Len(t, all.Data.Items, 8)

	rec = do(t, h, http.MethodGet, "/api/products?category=rings&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rings := decode[httputil.ListResponse[domain.Product]](t, rec)
	assert.Equal(t, 2, rings.Data.Count)
	require.Len(t, rings.Data.Items, 1)
	assert.Equal(t, "rose-gold-diamond-ring", rings.Data.Items[0].Handle)

	rec = do(t, h, http.MethodGet, "/api/products?in_stock=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[httputil.ListResponse[domain.Product]](t, rec).Data.Count)

	rec = do(t, h, http.MethodGet, "/api/products?in_stock=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodGet, "/api/products/gold-hoop-earrings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[domain.Product](t, rec).Data
	assert.Equal(t, "Gold Hoop Earrings", p.Name)

	rec = do(t, h, http.MethodGet, "/api/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/products/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, rec).Error.Code)
}

func TestCreateProduct(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodPost, "/api/products", map[string]any{
		"name": "Opal Drop Earrings", "price": 990000, "category": "earrings",
		"image_url": "/assets/opal.png", "sizes": []string{},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[domain.Product](t, rec).Data
	assert.Equal(t, "opal-drop-earrings", p.Handle)
	assert.True(t, p.InStock)

	rec = do(t, h, http.MethodGet, "/api/products/opal-drop-earrings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProduct_Validation(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodPost, "/api/products", map[string]any{"price": -5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[any](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "name")
	assert.Contains(t, env.Error.Fields, "price")

	rec = do(t, h, http.MethodPost, "/api/products", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func createOrder(t *testing.T, h http.Handler) domain.Order {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"customer_name":    "Sari Dewi",
		"customer_email":   "sari@example.com",
		"shipping_address": "Jl. Merdeka 1, Jakarta",
		"items": []map[string]any{
			{"product_id": "silver-charm-bracelet", "quantity": 2, "size": "M"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Order](t, rec).Data
}

func TestOrders_Lifecycle(t *testing.T) {
	h := newTestRouter(t, 0.5)

	order := createOrder(t, h)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(1900000), order.TotalAmount)

	rec := do(t, h, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[httputil.ListResponse[domain.Order]](t, rec).Data.Count)

	rec = do(t, h, http.MethodPatch, "/api/orders/"+order.ID+"/status", map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shipped", decode[domain.Order](t, rec).Data.Status)

	rec = do(t, h, http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shipped", decode[domain.Order](t, rec).Data.Status)
}

func TestUpdateOrderStatus_Invalid(t *testing.T) {
	h := newTestRouter(t, 0.5)
	order := createOrder(t, h)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"number", `{"status": 3}`, http.StatusBadRequest},
		{"missing", map[string]any{}, http.StatusBadRequest},
		{"empty", map[string]any{"status": ""}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPatch, "/api/orders/"+order.ID+"/status", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := do(t, h, http.MethodPatch, "/api/orders/missing/status", map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_Invalid(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"customer_name": "A", "customer_email": "not-an-email", "shipping_address": "x",
		"items": []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[any](t, rec).Error.Fields
	assert.Contains(t, fields, "customer_email")
	assert.Contains(t, fields, "items")

	rec = do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"customer_name": "A", "customer_email": "a@example.com", "shipping_address": "x",
		"items": []map[string]any{{"product_id": "gold-pendant-necklace", "quantity": 1, "size": "L"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulatePayment_Success(t *testing.T) {
	h := newTestRouter(t, 0.5)
	order := createOrder(t, h)

	rec := do(t, h, http.MethodPost, "/api/payment/simulate", map[string]any{"order_id": order.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var res payment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "paid", res.Status)
	assert.Equal(t, order.TotalAmount, res.Amount)
	assert.True(t, strings.HasPrefix(res.TransactionID, "txn_"))

	rec = do(t, h, http.MethodGet, "/api/orders/"+order.ID, nil)
	assert.Equal(t, domain.OrderStatusPaid, decode[domain.Order](t, rec).Data.Status)
}

func TestSimulatePayment_Declined(t *testing.T) {
	h := newTestRouter(t, 0)

	rec := do(t, h, http.MethodPost, "/api/payment/simulate", map[string]any{"amount": 150000})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var res PaymentFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, payment.FailureMessage, res.Message)
}

func TestSimulatePayment_UnknownOrder(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodPost, "/api/payment/simulate", map[string]any{"order_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndContentType(t *testing.T) {
	h := newTestRouter(t, 0.5)

	rec := do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
