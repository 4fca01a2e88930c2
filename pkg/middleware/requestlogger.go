package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/wishlist-service/pkg/httputil"
	"github.com/utafrali/wishlist-service/pkg/logger"
)

// RequestLogger attaches a request-scoped logger carrying the correlation ID
// and trace identifiers already present in the request context. Mount it
// after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, logger.WithContext(ctx, base))))
		})
	}
}

// OwnerScope reads the decoded wishlist owner from the named chi URL parameter and
// adds it to both the context and the request-scoped logger.
func OwnerScope(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := httputil.PathParam(r, param)
			if err != nil {
				httputil.WriteError(w, r, err, logger.FromContext(r.Context()))
				return
			}
			if owner == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithOwner(r.Context(), owner)
			scoped := logger.FromContext(ctx).With(slog.String("owner_email", owner))
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, scoped)))
		})
	}
}
