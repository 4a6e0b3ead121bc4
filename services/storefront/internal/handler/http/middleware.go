package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/jewelrycommerce/pkg/logger"
)

const (
	// SessionHeader carries the storefront session id for API clients.
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the storefront session id for browsers.
	SessionCookie = "sf_session"

	maxSessionIDLen = 128
)

type contextKey string

const sessionIDKey contextKey = "storefront_session_id"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	TTL    time.Duration
	Secure bool
}

// Sessions resolves the storefront session id from the X-Session-ID header
// or the sf_session cookie. Requests without a usable id get a new one,
// returned in both the cookie and the header.
func Sessions(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					id = c.Value
				}
			}
			if !validSessionID(id) {
				id = uuid.NewString()
				cookie := &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if opts.TTL > 0 {
					cookie.MaxAge = int(opts.TTL / time.Second)
				}
				http.SetCookie(w, cookie)
			}
			w.Header().Set(SessionHeader, id)

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			ctx = logger.WithSessionID(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func sessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
