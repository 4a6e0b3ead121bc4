package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/jewelrycommerce/pkg/health"
	"github.com/utafrali/jewelrycommerce/pkg/middleware"
)

// RateLimits holds the per-IP request budgets. A zero Requests disables
// that limiter.
type RateLimits struct {
	API      middleware.WindowLimit
	Register middleware.WindowLimit
	Login    middleware.WindowLimit
	Checkout middleware.WindowLimit
}

// DefaultRateLimits returns the storefront budgets.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		API: middleware.WindowLimit{
			Name: "api", Requests: 100, Window: 15 * time.Minute,
			Message: "too many requests from this IP, please try again later",
		},
		Register: middleware.WindowLimit{
			Name: "register", Requests: 5, Window: 15 * time.Minute,
			Message: "too many accounts created from this IP, please try again later",
		},
		Login: middleware.WindowLimit{
			Name: "login", Requests: 10, Window: 15 * time.Minute,
			Message: "too many login attempts, please try again later",
		},
		Checkout: middleware.WindowLimit{
			Name: "checkout", Requests: 3, Window: 5 * time.Minute,
			Message: "too many checkout attempts, please wait a few minutes",
		},
	}
}

// RouterConfig holds what NewRouter needs besides the handler.
type RouterConfig struct {
	ServiceName string
	Health      *health.Handler
	Logger      *slog.Logger
	PprofCIDRs  []string
	CORS        middleware.CORSConfig
	Sessions    SessionOptions
	RateLimits  RateLimits
	// TrustedProxies lists the CIDRs whose forwarding headers identify the
	// client for rate limiting.
	TrustedProxies []string
}

func limit(l middleware.WindowLimit, proxies []*net.IPNet, logger *slog.Logger) func(http.Handler) http.Handler {
	if l.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(l, proxies, logger)
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	rl := cfg.RateLimits
	proxies := middleware.ParseCIDRs(cfg.TrustedProxies, logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limit(rl.API, proxies, logger))
		r.Use(middleware.ContentTypeJSON)
		r.Use(Sessions(cfg.Sessions))
		r.Use(middleware.RequestLogger(logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/by-key/{productId}", h.UpdateItemByKey)
			r.Delete("/items/by-key/{productId}", h.RemoveItemByKey)
			r.Put("/items/{lineItemId}", h.UpdateItem)
			r.Delete("/items/{lineItemId}", h.RemoveItem)
			r.Post("/discounts/{code}", h.ApplyDiscount)
			r.Delete("/discounts/{code}", h.RemoveDiscount)
			r.Put("/email", h.SetEmail)
			r.Put("/shipping-address", h.SetShippingAddress)
			r.Put("/billing-address", h.SetBillingAddress)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/shipping-options", h.ShippingOptions)
			r.Post("/shipping-method", h.SelectShippingMethod)
			r.Post("/payment-session", h.InitPayment)
			r.With(limit(rl.Checkout, proxies, logger)).Post("/complete", h.CompleteCheckout)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(limit(rl.Register, proxies, logger)).Post("/register", h.Register)
			r.With(limit(rl.Login, proxies, logger)).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Route("/customer", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Post("/addresses", h.AddAddress)
			r.Put("/addresses/{addressId}", h.UpdateAddress)
			r.Delete("/addresses/{addressId}", h.DeleteAddress)
			r.Get("/orders", h.ListOrders)
		})

		r.Get("/regions", h.ListRegions)
		r.Get("/region", h.GetRegion)
		r.Put("/region", h.SetRegion)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{idOrHandle}", h.GetProduct)
		r.Get("/search", h.SearchProducts)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/collections", h.ListCollections)
		r.Get("/collections/{id}", h.GetCollection)
		r.Get("/orders/lookup", h.LookupOrder)
		r.Get("/orders/{id}", h.GetOrder)
	})

	return r
}
