package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/jewelrycommerce/pkg/health"
	"github.com/utafrali/jewelrycommerce/pkg/httpclient"
	"github.com/utafrali/jewelrycommerce/pkg/httputil"
	"github.com/utafrali/jewelrycommerce/pkg/middleware"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa/medusatest"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/storefront"
)

// ============================================================================
// Test helpers
// ============================================================================

const testSession = "sess-1"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv    *medusatest.Server
	store  *session.MemoryStore
	router http.Handler
}

func newTestEnv(t *testing.T, limits RateLimits) *testEnv {
	t.Helper()
	srv := medusatest.NewServer(t)
	client := medusa.New(medusa.Config{BaseURL: srv.URL},
		httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxConnsPerHost: 4}), testLogger())
	store := session.NewMemoryStore(0)
	svc := storefront.NewService(client, store, nil, testLogger())

	router := NewRouter(NewHandler(svc, client, testLogger()), RouterConfig{
		ServiceName: "storefront",
		Health:      health.NewHandler(),
		Logger:      testLogger(),
		CORS:        middleware.DefaultCORSConfig(),
		RateLimits:  limits,
	})
	return &testEnv{srv: srv, store: store, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(SessionHeader, testSession)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Data  T                       `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

// ============================================================================
// Sessions
// ============================================================================

func TestSessions_IssuesCookieWhenAbsent(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	issued := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, issued)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, issued, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessions_ReusesCookie(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "browser-session"})
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "browser-session", rec.Header().Get(SessionHeader))
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessions_ReplacesMalformedID(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "../../etc/passwd")
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc/passwd", rec.Header().Get(SessionHeader))
	assert.Len(t, rec.Result().Cookies(), 1)
}

// ============================================================================
// Cart
// ============================================================================

func TestGetCart_EmptySession(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, storefront.StateEmpty, resp.Data.State)
	assert.Nil(t, resp.Data.Cart)
	assert.Nil(t, resp.Data.Totals)
}

func TestAddItem_PersistsCartAndFormatsTotals(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_ring_7", Quantity: 2})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, storefront.StatePopulated, resp.Data.State)
	assert.Equal(t, 2, resp.Data.ItemCount)
	require.NotNil(t, resp.Data.Totals)
	assert.Equal(t, "idr", resp.Data.Totals.Currency)
	assert.Equal(t, "IDR 5,000,000", resp.Data.Totals.Subtotal)

	cartID, ok, err := env.store.Get(t.Context(), testSession, session.KeyCartID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resp.Data.Cart.ID, cartID)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil)
	again := decode[CartResponse](t, rec)
	assert.Equal(t, resp.Data.Cart.ID, again.Data.Cart.ID)
	assert.Equal(t, resp.Data.Version, again.Data.Version)
}

func TestAddItem_Validation(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_ring_7", Quantity: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[any](t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "quantity")
	assert.Empty(t, env.srv.Requests())
}

func TestAddItem_UnknownVariantKeepsRemoteStatus(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_missing", Quantity: 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[any](t, rec)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Code)
}

func TestUpdateItem_NonPositiveQuantityRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		t.Run(strconv.Itoa(qty), func(t *testing.T) {
			env := newTestEnv(t, RateLimits{})
			rec := env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_necklace", Quantity: 1})
			added := decode[CartResponse](t, rec)
			require.Len(t, added.Data.Cart.Items, 1)
			lineID := added.Data.Cart.Items[0].ID

			rec = env.do(t, http.MethodPut, "/api/v1/cart/items/"+lineID, UpdateQuantityRequest{Quantity: qty})

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[CartResponse](t, rec)
			assert.Equal(t, storefront.StateEmpty, resp.Data.State)
			assert.Zero(t, resp.Data.ItemCount)
		})
	}
}

func TestUpdateItemByKey_NegativeQuantityRemoves(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_ring_7", Quantity: 2})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/by-key/"+medusatest.ProductRing+"?size=7", UpdateQuantityRequest{Quantity: -1})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, storefront.StateEmpty, decode[CartResponse](t, rec).Data.State)
}

func TestUpdateItem_QuantityAboveMaximum(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/li_1", UpdateQuantityRequest{Quantity: 101})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.srv.Requests())
}

func TestUpdateItem_WithoutCartIsPrecondition(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/li_1", UpdateQuantityRequest{Quantity: 2})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	resp := decode[any](t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PRECONDITION_FAILED", resp.Error.Code)
}

func TestUpdateItemByKey(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_ring_7", Quantity: 1})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/by-key/"+medusatest.ProductRing+"?size=7", UpdateQuantityRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[CartResponse](t, rec).Data.ItemCount)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/by-key/"+medusatest.ProductRing+"?size=8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/by-key/"+medusatest.ProductRing+"?size=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storefront.StateEmpty, decode[CartResponse](t, rec).Data.State)
}

func TestDiscounts(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.do(t, http.MethodPut, "/api/v1/region", RegionRequest{RegionID: medusatest.RegionUS})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_ring_7", Quantity: 1})

	rec := env.do(t, http.MethodPost, "/api/v1/cart/discounts/"+medusatest.DiscountCode, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, int64(1600), resp.Data.Cart.DiscountTotal)
	assert.Equal(t, "USD 16.00", resp.Data.Totals.Discount)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/discounts/"+medusatest.DiscountCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[CartResponse](t, rec).Data.Cart.DiscountTotal)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_necklace", Quantity: 1})

	rec := env.do(t, http.MethodDelete, "/api/v1/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storefront.StateEmpty, decode[CartResponse](t, rec).Data.State)
	_, ok, err := env.store.Get(t.Context(), testSession, session.KeyCartID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContentTypeEnforced(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("variant_id=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Checkout
// ============================================================================

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.do(t, http.MethodPut, "/api/v1/region", RegionRequest{RegionID: medusatest.RegionUS})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{VariantID: "variant_necklace", Quantity: 1})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/email", EmailRequest{Email: "sari@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/checkout/shipping-options", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	options := decode[[]map[string]any](t, rec).Data
	require.NotEmpty(t, options)
	assert.NotEmpty(t, options[0]["formatted_amount"])

	rec = env.do(t, http.MethodPost, "/api/v1/checkout/shipping-method", ShippingMethodRequest{OptionID: medusatest.ShippingStandard})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/checkout/payment-session", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decode[CartResponse](t, rec).Data.Cart
	require.NotNil(t, cart.PaymentSession)
	assert.Equal(t, storefront.DefaultPaymentProvider, cart.PaymentSession.ProviderID)

	rec = env.do(t, http.MethodPost, "/api/v1/checkout/complete", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[domain.Order](t, rec).Data
	assert.Equal(t, 1, order.DisplayID)
	assert.Equal(t, cart.Total, order.Total)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, storefront.StateEmpty, decode[CartResponse](t, rec).Data.State)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/lookup?display_id=1&email=sari@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.ID, decode[domain.Order](t, rec).Data.ID)
}

func TestCheckoutComplete_WithoutCart(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodPost, "/api/v1/checkout/complete", nil)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestLookupOrder_BadDisplayID(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/orders/lookup?display_id=abc&email=a@b.c", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Account
// ============================================================================

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.srv.AddCustomer("sari@example.com", "secret123", "Sari", "Dewi")

	rec := env.do(t, http.MethodGet, "/api/v1/customer", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "sari@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sari@example.com", decode[domain.Customer](t, rec).Data.Email)

	rec = env.do(t, http.MethodGet, "/api/v1/customer", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/customer/orders?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orders := decode[httputil.ListResponse[domain.Order]](t, rec).Data
	assert.Equal(t, 5, orders.Limit)
	assert.Empty(t, orders.Items)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/customer", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, ok, err := env.store.Get(t.Context(), testSession, session.KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.srv.AddCustomer("sari@example.com", "secret123", "Sari", "Dewi")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "sari@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	req := RegisterRequest{Email: "new@example.com", Password: "longenough", FirstName: "New", LastName: "Customer"}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "new@example.com", decode[domain.Customer](t, rec).Data.Email)

	req.Password = "short"
	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddresses(t *testing.T) {
	env := newTestEnv(t, RateLimits{})
	env.srv.AddCustomer("sari@example.com", "secret123", "Sari", "Dewi")
	env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "sari@example.com", Password: "secret123"})
	addr := AddressRequest{FirstName: "Sari", Address1: "Jl. Melati 1", City: "Bandung", CountryCode: "id"}

	rec := env.do(t, http.MethodPost, "/api/v1/customer/addresses", addr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decode[domain.Customer](t, rec).Data
	require.Len(t, customer.ShippingAddresses, 1)

	rec = env.do(t, http.MethodDelete, "/api/v1/customer/addresses/"+customer.ShippingAddresses[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.Customer](t, rec).Data.ShippingAddresses)
}

// ============================================================================
// Catalog and regions
// ============================================================================

func TestListProducts_PricedInSessionCurrency(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/products?limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[httputil.ListResponse[ProductView]](t, rec).Data
	require.NotEmpty(t, list.Items)
	var ring *ProductView
	for i := range list.Items {
		if list.Items[i].ID == medusatest.ProductRing {
			ring = &list.Items[i]
		}
	}
	require.NotNil(t, ring)
	require.NotNil(t, ring.FromPrice)
	assert.Equal(t, "IDR 2,500,000", ring.FromPrice.Formatted)
	assert.Equal(t, []string{"5", "6", "7", "8", "9"}, ring.Sizes)

	env.do(t, http.MethodPut, "/api/v1/region", RegionRequest{RegionID: medusatest.RegionUS})
	rec = env.do(t, http.MethodGet, "/api/v1/products/rose-gold-diamond-ring", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	product := decode[ProductView](t, rec).Data
	assert.Equal(t, medusatest.ProductRing, product.ID)
	assert.Equal(t, "USD 160.00", product.FromPrice.Formatted)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/products/prod_missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_RequiresQuery(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/search", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegions(t *testing.T) {
	env := newTestEnv(t, RateLimits{})

	rec := env.do(t, http.MethodGet, "/api/v1/regions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Region](t, rec).Data, 2)

	rec = env.do(t, http.MethodGet, "/api/v1/region", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, medusatest.RegionIndonesia, decode[domain.Region](t, rec).Data.ID)

	rec = env.do(t, http.MethodPut, "/api/v1/region", RegionRequest{RegionID: "reg_mars"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Rate limits
// ============================================================================

func TestRateLimit_Login(t *testing.T) {
	limits := RateLimits{Login: middleware.WindowLimit{Name: "login", Requests: 1, Window: time.Minute}}
	env := newTestEnv(t, limits)
	creds := LoginRequest{Email: "sari@example.com", Password: "wrong"}

	first := env.do(t, http.MethodPost, "/api/v1/auth/login", creds)
	second := env.do(t, http.MethodPost, "/api/v1/auth/login", creds)

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultRateLimits(t *testing.T) {
	limits := DefaultRateLimits()
	assert.Equal(t, 100, limits.API.Requests)
	assert.Equal(t, 5, limits.Register.Requests)
	assert.Equal(t, 10, limits.Login.Requests)
	assert.Equal(t, 3, limits.Checkout.Requests)
	assert.Equal(t, 5*time.Minute, limits.Checkout.Window)
}
