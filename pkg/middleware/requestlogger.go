package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/jewelrycommerce/pkg/logger"
)

// RequestLogger stores a logger enriched with the ids already present in the
// request context (correlation, session, customer, trace). Mount it after
// RequestLogging, Tracing and any middleware that resolves the session.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
