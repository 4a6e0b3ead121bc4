package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/jewelrycommerce/pkg/httputil"
)

// WindowLimit allows Requests per Window for one client. Windows are fixed:
// the budget resets in full once Window has elapsed since the client's first
// request in the current window.
type WindowLimit struct {
	Name     string
	Requests int
	Window   time.Duration
	Message  string
}

type visitor struct {
	limiter *rate.Limiter
	resetAt time.Time
}

// RateLimiter keeps one budget per client IP. Expired windows are swept
// lazily on later requests.
type RateLimiter struct {
	limit   WindowLimit
	proxies []*net.IPNet

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter for l. Forwarding headers are honoured only
// for requests arriving from one of proxies.
func NewRateLimiter(l WindowLimit, proxies []*net.IPNet) *RateLimiter {
	if l.Requests <= 0 {
		l.Requests = 1
	}
	if l.Window <= 0 {
		l.Window = time.Minute
	}
	if l.Message == "" {
		l.Message = "too many requests, please try again later"
	}
	return &RateLimiter{
		limit:    l,
		proxies:  proxies,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow reports whether key may make another request now and, if not, how
// long until its window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[key]
	if !ok || !now.Before(v.resetAt) {
		// A bucket refilling one token per Window cannot gain a token before
		// resetAt, so each window admits exactly Requests.
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(rl.limit.Window), rl.limit.Requests),
			resetAt: now.Add(rl.limit.Window),
		}
		rl.visitors[key] = v
	}

	if !v.limiter.AllowN(now, 1) {
		return false, v.resetAt.Sub(now)
	}
	return true, 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.limit.Window {
		return
	}
	rl.lastSweep = now
	for key, v := range rl.visitors {
		if !now.Before(v.resetAt) {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// RateLimit returns middleware enforcing l per client IP. Rejected requests
// get a 429 envelope with a Retry-After header.
func RateLimit(l WindowLimit, proxies []*net.IPNet, logger *slog.Logger) func(http.Handler) http.Handler {
	return NewRateLimiter(l, proxies).Middleware(logger)
}

// Middleware adapts the limiter to an http middleware.
func (rl *RateLimiter) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, rl.proxies)
			ok, retryAfter := rl.Allow(ip)
			w.Header().Set("RateLimit-Limit", strconv.Itoa(rl.limit.Requests))
			if !ok {
				rateLimitedTotal.WithLabelValues(rl.limit.Name).Inc()
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("limiter", rl.limit.Name),
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "RATE_LIMITED", Message: rl.limit.Message},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	if secs := int(d.Round(time.Second) / time.Second); secs > 0 {
		return secs
	}
	return 1
}

// ClientIP returns the connection's remote host. When that host is one of
// proxies, the first address in X-Forwarded-For, then X-Real-IP, is used
// instead.
func ClientIP(r *http.Request, proxies []*net.IPNet) string {
	host := remoteHost(r)
	if !containsIP(proxies, net.ParseIP(host)) {
		return host
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	return host
}
