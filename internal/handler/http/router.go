package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/wishlist-service/pkg/health"
	"github.com/utafrali/wishlist-service/pkg/middleware"
)

// RouterConfig carries the HTTP-layer settings taken from the service config.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	RateLimit         middleware.RateLimitConfig
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all wishlist service routes registered.
func NewRouter(
	wishlistService WishlistService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("wishlist"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("wishlist"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	wishlistHandler := NewWishlistHandler(wishlistService, logger)

	r.Route("/api/v1/wishlists", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, logger))

		r.Post("/", wishlistHandler.Create)
		r.Get("/", wishlistHandler.List)
		r.Delete("/", wishlistHandler.DeleteAll)

		r.Route("/{email}/{name}", func(r chi.Router) {
			r.Use(middleware.OwnerScope("email"))

			r.Get("/", wishlistHandler.Get)
			r.Put("/products", wishlistHandler.AddProduct)
		})
	})

	return r
}
