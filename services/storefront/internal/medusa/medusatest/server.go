// Package medusatest provides an in-memory Medusa store API for tests.
package medusatest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// Seeded ids.
const (
	RegionIndonesia = "reg_id"
	RegionUS        = "reg_us"

	ProductRing     = "prod_ring"
	ProductNecklace = "prod_necklace"
	ProductBracelet = "prod_bracelet"

	ShippingStandard = "so_standard"
	ShippingExpress  = "so_express"

	// DiscountCode takes 10% off the subtotal.
	DiscountCode = "SPARKLE10"
)

var signingKey = []byte("medusatest-secret")

// Request is one request received by the server.
type Request struct {
	Method         string
	Path           string
	Query          string
	Authorization  string
	PublishableKey string
	Traceparent    string
	Body           string
}

type failure struct {
	status  int
	errType string
	message string
}

type account struct {
	password string
	customer *domain.Customer
}

type cartState struct {
	cart            *domain.Cart
	sessionsCreated bool
	completed       bool
}

// Server is a stateful fake of the Medusa store endpoints used by the
// storefront.
type Server struct {
	*httptest.Server

	// PublishableKey, when set, must be sent on every /store request.
	PublishableKey string

	mu        sync.Mutex
	regions   []domain.Region
	products  []domain.Product
	carts     map[string]*cartState
	accounts  map[string]*account
	tokens    map[string]string
	orders    []*domain.Order
	failures  map[string][]failure
	requests  []Request
	seq       int
	displayID int
}

// NewServer starts a seeded fake. It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		regions:  seedRegions(),
		products: seedProducts(),
		carts:    make(map[string]*cartState),
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		failures: make(map[string][]failure),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("OK")) })

	r.Route("/store", func(r chi.Router) {
		r.Use(s.requireKey)

		r.Get("/regions", s.listRegions)
		r.Get("/regions/{id}", s.getRegion)
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)
		r.Get("/products/handle/{handle}", s.getProductByHandle)
		r.Get("/product-categories", s.listCategories)
		r.Get("/product-categories/{id}", s.getCategory)
		r.Get("/collections", s.listCollections)
		r.Get("/collections/{id}", s.getCollection)

		r.Post("/carts", s.createCart)
		r.Get("/carts/{id}", s.getCart)
		r.Post("/carts/{id}", s.updateCart)
		r.Post("/carts/{id}/line-items", s.addLineItem)
		r.Post("/carts/{id}/line-items/{line}", s.updateLineItem)
		r.Delete("/carts/{id}/line-items/{line}", s.removeLineItem)
		r.Delete("/carts/{id}/discounts/{code}", s.removeDiscount)
		r.Post("/carts/{id}/shipping-methods", s.addShippingMethod)
		r.Post("/carts/{id}/payment-sessions", s.createPaymentSessions)
		r.Post("/carts/{id}/payment-session", s.selectPaymentSession)
		r.Post("/carts/{id}/payment-sessions/{provider}", s.updatePaymentSession)
		r.Post("/carts/{id}/complete", s.completeCart)
		r.Get("/shipping-options", s.listShippingOptions)

		r.Post("/customers", s.register)
		r.Post("/auth/customer/emailpass", s.login)
		r.Delete("/auth", s.logout)
		r.Get("/customers/me", s.me)
		r.Post("/customers/me", s.updateMe)
		r.Post("/customers/me/addresses", s.addAddress)
		r.Post("/customers/me/addresses/{addr}", s.updateAddress)
		r.Delete("/customers/me/addresses/{addr}", s.deleteAddress)
		r.Get("/customers/me/orders", s.myOrders)

		r.Get("/orders/{id}", s.getOrder)
		r.Get("/orders/batch/customer/{display}", s.lookupOrder)
	})
	return r
}

// FailNext makes the next request matching method and path answer with
// status and a Medusa error body of errType.
func (s *Server) FailNext(method, path string, status int, errType, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, errType: errType, message: message})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests matched method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Cart returns a copy of a stored cart.
func (s *Server) Cart(id string) (*domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.carts[id]
	if !ok {
		return nil, false
	}
	cp := *cs.cart
	return &cp, true
}

// DeleteCart forgets a cart, as if it expired remotely.
func (s *Server) DeleteCart(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
}

// AddCustomer registers an account directly.
func (s *Server) AddCustomer(email, password, firstName, lastName string) *domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccount(email, password, firstName, lastName)
}

// IssueToken returns a signed token for email expiring at exp.
func (s *Server) IssueToken(email string, exp time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(email, exp)
}

// ---------------------------------------------------------------------------
// Middleware and helpers
// ---------------------------------------------------------------------------

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:         r.Method,
			Path:           r.URL.Path,
			Query:          r.URL.RawQuery,
			Authorization:  r.Header.Get("Authorization"),
			PublishableKey: r.Header.Get("x-publishable-api-key"),
			Traceparent:    r.Header.Get("traceparent"),
			Body:           string(body),
		})
		key := r.Method + " " + r.URL.Path
		var f *failure
		if queued := s.failures[key]; len(queued) > 0 {
			f = &queued[0]
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.errType, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.PublishableKey != "" && r.Header.Get("x-publishable-api-key") != s.PublishableKey {
			writeError(w, http.StatusBadRequest, "not_allowed", "Publishable API key required in the request header: x-publishable-api-key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{"type": errType, "message": message})
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%02d", prefix, s.seq)
}

func (s *Server) issueToken(email string, exp time.Time) string {
	claims := jwt.MapClaims{
		"actor_id":   email,
		"actor_type": "customer",
		"jti":        s.nextID("tok"),
		"exp":        exp.Unix(),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	s.tokens[token] = email
	return token
}

// account resolves the bearer token. Caller holds s.mu.
func (s *Server) authenticated(r *http.Request) (*account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	email, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	acc, ok := s.accounts[email]
	return acc, ok
}

func (s *Server) addAccount(email, password, firstName, lastName string) *domain.Customer {
	c := &domain.Customer{
		ID:        s.nextID("cus"),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[email] = &account{password: password, customer: c}
	return c
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s *Server) listRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"regions": s.regions})
}

func (s *Server) getRegion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if reg := s.region(id); reg != nil {
		writeJSON(w, http.StatusOK, map[string]any{"region": reg})
		return
	}
	writeError(w, http.StatusNotFound, "not_found", "Region with id "+id+" was not found")
}

func (s *Server) region(id string) *domain.Region {
	for i := range s.regions {
		if s.regions[i].ID == id {
			return &s.regions[i]
		}
	}
	return nil
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	categories := r.URL.Query()["category_id"]
	var out []domain.Product
	for _, p := range s.products {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) {
			continue
		}
		if len(categories) > 0 && !inCategories(p, categories) {
			continue
		}
		out = append(out, p)
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	count := len(out)
	if offset > count {
		offset = count
	}
	end := min(offset+limit, count)
	writeJSON(w, http.StatusOK, map[string]any{"products": out[offset:end], "count": count, "limit": limit, "offset": offset})
}

func inCategories(p domain.Product, ids []string) bool {
	for _, c := range p.Categories {
		for _, id := range ids {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"product": p})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Product with id: "+id+" was not found")
}

func (s *Server) getProductByHandle(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	for _, p := range s.products {
		if p.Handle == handle {
			writeJSON(w, http.StatusOK, map[string]any{"product": p})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Product with handle: "+handle+" was not found")
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"product_categories": seedCategories()})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, c := range seedCategories() {
		if c.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"product_category": c})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "ProductCategory with id: "+id+" was not found")
}

func (s *Server) listCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"collections": seedCollections()})
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, c := range seedCollections() {
		if c.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"collection": c})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Collection with id: "+id+" was not found")
}

// ---------------------------------------------------------------------------
// Carts
// ---------------------------------------------------------------------------

// loadCart resolves {id}, writing a 404 when unknown. Caller holds s.mu.
func (s *Server) loadCart(w http.ResponseWriter, r *http.Request) (*cartState, bool) {
	id := chi.URLParam(r, "id")
	cs, ok := s.carts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Cart with id: "+id+" was not found")
		return nil, false
	}
	if cs.completed && r.Method != http.MethodGet {
		writeError(w, http.StatusConflict, "conflict", "Cart "+id+" has already been completed")
		return nil, false
	}
	return cs, true
}

func (s *Server) writeCart(w http.ResponseWriter, cs *cartState) {
	s.recalculate(cs.cart)
	writeJSON(w, http.StatusOK, map[string]any{"cart": cs.cart})
}

func (s *Server) recalculate(c *domain.Cart) {
	var subtotal int64
	for i := range c.Items {
		item := &c.Items[i]
		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		item.Total = item.Subtotal
		subtotal += item.Subtotal
	}
	var shipping int64
	for _, m := range c.ShippingMethods {
		shipping += m.Price
	}
	var discount int64
	for _, d := range c.Discounts {
		if d.Code == DiscountCode {
			discount += subtotal / 10
		}
	}
	c.Subtotal = subtotal
	c.ShippingTotal = shipping
	c.DiscountTotal = discount
	c.TaxTotal = 0
	c.Total = subtotal + shipping - discount
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RegionID string `json:"region_id"`
	}
	_ = decode(r, &body)

	s.mu.Lock()
	defer s.mu.Unlock()

	regionID := body.RegionID
	if regionID == "" {
		regionID = s.regions[0].ID
	}
	reg := s.region(regionID)
	if reg == nil {
		writeError(w, http.StatusNotFound, "not_found", "Region with id "+regionID+" was not found")
		return
	}
	cart := &domain.Cart{ID: s.nextID("cart"), Items: []domain.LineItem{}, RegionID: reg.ID, Region: reg}
	if acc, ok := s.authenticated(r); ok {
		cart.CustomerID = acc.customer.ID
		cart.Email = acc.customer.Email
	}
	cs := &cartState{cart: cart}
	s.carts[cart.ID] = cs
	s.writeCart(w, cs)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.loadCart(w, r); ok {
		s.writeCart(w, cs)
	}
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email           string            `json:"email"`
		ShippingAddress *domain.Address   `json:"shipping_address"`
		BillingAddress  *domain.Address   `json:"billing_address"`
		RegionID        string            `json:"region_id"`
		Discounts       []domain.Discount `json:"discounts"`
	}
	if !decode(r, &body) {
		writeError(w, http.StatusBadRequest, "invalid_data", "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	c := cs.cart
	if body.Email != "" {
		c.Email = body.Email
	}
	if body.ShippingAddress != nil {
		c.ShippingAddress = body.ShippingAddress
	}
	if body.BillingAddress != nil {
		c.BillingAddress = body.BillingAddress
	}
	if body.RegionID != "" && body.RegionID != c.RegionID {
		reg := s.region(body.RegionID)
		if reg == nil {
			writeError(w, http.StatusNotFound, "not_found", "Region with id "+body.RegionID+" was not found")
			return
		}
		c.RegionID, c.Region = reg.ID, reg
		c.ShippingMethods = nil
		for i := range c.Items {
			c.Items[i].UnitPrice = s.priceFor(c.Items[i].VariantID, reg.CurrencyCode)
		}
	}
	for _, d := range body.Discounts {
		if d.Code != DiscountCode {
			writeError(w, http.StatusNotFound, "not_found", "Discount with code "+d.Code+" not found")
			return
		}
		if !hasDiscount(c, d.Code) {
			c.Discounts = append(c.Discounts, d)
		}
	}
	s.writeCart(w, cs)
}

func hasDiscount(c *domain.Cart, code string) bool {
	for _, d := range c.Discounts {
		if d.Code == code {
			return true
		}
	}
	return false
}

func (s *Server) findVariant(id string) (*domain.Product, *domain.Variant) {
	for i := range s.products {
		for j := range s.products[i].Variants {
			if s.products[i].Variants[j].ID == id {
				return &s.products[i], &s.products[i].Variants[j]
			}
		}
	}
	return nil, nil
}

func (s *Server) priceFor(variantID, currency string) int64 {
	_, v := s.findVariant(variantID)
	if v == nil {
		return 0
	}
	amount, _ := domain.VariantPrice(*v, currency)
	return amount
}

func (s *Server) addLineItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decode(r, &body) || body.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "invalid_data", "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	product, variant := s.findVariant(body.VariantID)
	if variant == nil {
		writeError(w, http.StatusNotFound, "not_found", "Variant with id: "+body.VariantID+" was not found")
		return
	}
	if variant.InventoryQuantity < body.Quantity {
		writeError(w, http.StatusBadRequest, "not_allowed", "Variant with id: "+variant.ID+" does not have the required inventory")
		return
	}

	c := cs.cart
	for i := range c.Items {
		if c.Items[i].VariantID == variant.ID {
			c.Items[i].Quantity += body.Quantity
			s.writeCart(w, cs)
			return
		}
	}
	v := *variant
	v.Prices = nil
	c.Items = append(c.Items, domain.LineItem{
		ID:        s.nextID("item"),
		Title:     product.Title,
		Thumbnail: product.Thumbnail,
		ProductID: product.ID,
		VariantID: variant.ID,
		Variant:   &v,
		Quantity:  body.Quantity,
		UnitPrice: s.priceFor(variant.ID, c.Region.CurrencyCode),
	})
	s.writeCart(w, cs)
}

func (s *Server) updateLineItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if !decode(r, &body) || body.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "invalid_data", "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	line := chi.URLParam(r, "line")
	for i := range cs.cart.Items {
		if cs.cart.Items[i].ID == line {
			cs.cart.Items[i].Quantity = body.Quantity
			s.writeCart(w, cs)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Line item with id: "+line+" was not found")
}

func (s *Server) removeLineItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	line := chi.URLParam(r, "line")
	items := cs.cart.Items
	for i := range items {
		if items[i].ID == line {
			cs.cart.Items = append(items[:i:i], items[i+1:]...)
			s.writeCart(w, cs)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Line item with id: "+line+" was not found")
}

func (s *Server) removeDiscount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	kept := cs.cart.Discounts[:0]
	for _, d := range cs.cart.Discounts {
		if d.Code != code {
			kept = append(kept, d)
		}
	}
	cs.cart.Discounts = kept
	s.writeCart(w, cs)
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

func shippingOptions() []domain.ShippingOption {
	return []domain.ShippingOption{
		{ID: ShippingStandard, Name: "Standard Shipping", Amount: 2000},
		{ID: ShippingExpress, Name: "Express Shipping", Amount: 5000},
	}
}

func (s *Server) listShippingOptions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.carts[r.URL.Query().Get("cart_id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Cart was not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipping_options": shippingOptions()})
}

func (s *Server) addShippingMethod(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OptionID string `json:"option_id"`
	}
	_ = decode(r, &body)

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	for _, opt := range shippingOptions() {
		if opt.ID == body.OptionID {
			cs.cart.ShippingMethods = []domain.ShippingMethod{{ID: s.nextID("sm"), ShippingOption: opt, Price: opt.Amount}}
			s.writeCart(w, cs)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Shipping option with id: "+body.OptionID+" was not found")
}

func (s *Server) createPaymentSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	cs.sessionsCreated = true
	s.writeCart(w, cs)
}

func (s *Server) selectPaymentSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProviderID string `json:"provider_id"`
	}
	_ = decode(r, &body)

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	if !cs.sessionsCreated {
		writeError(w, http.StatusBadRequest, "not_allowed", "Payment sessions have not been initialized")
		return
	}
	cs.cart.PaymentSession = &domain.PaymentSession{ID: s.nextID("ps"), ProviderID: body.ProviderID, Status: "pending"}
	s.writeCart(w, cs)
}

func (s *Server) updatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	_ = decode(r, &body)

	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	ps := cs.cart.PaymentSession
	if ps == nil || ps.ProviderID != chi.URLParam(r, "provider") {
		writeError(w, http.StatusNotFound, "not_found", "Payment session was not found")
		return
	}
	ps.Data = body.Data
	s.writeCart(w, cs)
}

func (s *Server) completeCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	c := cs.cart
	switch {
	case len(c.Items) == 0:
		writeError(w, http.StatusBadRequest, "not_allowed", "Cannot complete a cart without items")
		return
	case c.PaymentSession == nil:
		s.recalculate(c)
		writeJSON(w, http.StatusOK, map[string]any{
			"type":  "cart",
			"cart":  c,
			"error": map[string]string{"message": "Payment session has not been selected"},
		})
		return
	}

	s.recalculate(c)
	s.displayID++
	order := &domain.Order{
		ID:                s.nextID("order"),
		DisplayID:         s.displayID,
		Status:            "pending",
		FulfillmentStatus: "not_fulfilled",
		PaymentStatus:     "awaiting",
		Email:             c.Email,
		CurrencyCode:      c.Region.CurrencyCode,
		Items:             append([]domain.LineItem(nil), c.Items...),
		ShippingAddress:   c.ShippingAddress,
		BillingAddress:    c.BillingAddress,
		ShippingMethods:   c.ShippingMethods,
		Subtotal:          c.Subtotal,
		TaxTotal:          c.TaxTotal,
		ShippingTotal:     c.ShippingTotal,
		DiscountTotal:     c.DiscountTotal,
		Total:             c.Total,
		CreatedAt:         time.Now().UTC(),
	}
	s.orders = append(s.orders, order)
	cs.completed = true
	writeJSON(w, http.StatusOK, map[string]any{"type": "order", "order": order})
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decode(r, &reg) || reg.Email == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_data", "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[reg.Email]; exists {
		writeError(w, http.StatusUnprocessableEntity, "duplicate_error", "A customer with the given email already has an account. Log in instead.")
		return
	}
	c := s.addAccount(reg.Email, reg.Password, reg.FirstName, reg.LastName)
	c.Phone = reg.Phone
	writeJSON(w, http.StatusOK, map[string]any{"customer": c})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = decode(r, &body)

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[body.Email]
	if !ok || acc.password != body.Password {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.issueToken(body.Email, time.Now().Add(time.Hour))})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// withAccount runs fn for the authenticated account, or writes a 401.
func (s *Server) withAccount(w http.ResponseWriter, r *http.Request, fn func(*account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.authenticated(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	fn(acc)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.withAccount(w, r, func(acc *account) {
		writeJSON(w, http.StatusOK, map[string]any{"customer": acc.customer})
	})
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var body domain.CustomerUpdate
	_ = decode(r, &body)
	s.withAccount(w, r, func(acc *account) {
		c := acc.customer
		if body.FirstName != "" {
			c.FirstName = body.FirstName
		}
		if body.LastName != "" {
			c.LastName = body.LastName
		}
		if body.Phone != "" {
			c.Phone = body.Phone
		}
		if body.Password != "" {
			acc.password = body.Password
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": c})
	})
}

func (s *Server) addAddress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address domain.Address `json:"address"`
	}
	_ = decode(r, &body)
	s.withAccount(w, r, func(acc *account) {
		addr := body.Address
		addr.ID = s.nextID("addr")
		acc.customer.ShippingAddresses = append(acc.customer.ShippingAddresses, addr)
		writeJSON(w, http.StatusOK, map[string]any{"customer": acc.customer})
	})
}

func (s *Server) updateAddress(w http.ResponseWriter, r *http.Request) {
	var body domain.Address
	_ = decode(r, &body)
	s.withAccount(w, r, func(acc *account) {
		id := chi.URLParam(r, "addr")
		for i := range acc.customer.ShippingAddresses {
			if acc.customer.ShippingAddresses[i].ID == id {
				body.ID = id
				acc.customer.ShippingAddresses[i] = body
				writeJSON(w, http.StatusOK, map[string]any{"customer": acc.customer})
				return
			}
		}
		writeError(w, http.StatusNotFound, "not_found", "Address with id: "+id+" was not found")
	})
}

func (s *Server) deleteAddress(w http.ResponseWriter, r *http.Request) {
	s.withAccount(w, r, func(acc *account) {
		id := chi.URLParam(r, "addr")
		kept := acc.customer.ShippingAddresses[:0]
		for _, a := range acc.customer.ShippingAddresses {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		acc.customer.ShippingAddresses = kept
		writeJSON(w, http.StatusOK, map[string]any{"customer": acc.customer})
	})
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	s.withAccount(w, r, func(acc *account) {
		orders := []*domain.Order{}
		for _, o := range s.orders {
			if o.Email == acc.customer.Email {
				orders = append(orders, o)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	for _, o := range s.orders {
		if o.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"order": o})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Order with id: "+id+" was not found")
}

func (s *Server) lookupOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	display, _ := strconv.Atoi(chi.URLParam(r, "display"))
	email := r.URL.Query().Get("email")
	for _, o := range s.orders {
		if o.DisplayID == display && strings.EqualFold(o.Email, email) {
			writeJSON(w, http.StatusOK, map[string]any{"order": o})
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Order was not found")
}
