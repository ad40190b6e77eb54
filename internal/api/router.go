package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gwi.com/shop-assistant/internal/metrics"
)

// NewRouter mounts the JSON API under /api. gatherer may be nil, in which case
// /metrics is not served.
func NewRouter(apiHandler *APIHandler, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiHandler.RequestLogger) // Structured request logging
	r.Use(middleware.Recoverer)     // Recover from panics
	r.Use(middleware.StripSlashes)  // Ensure consistent path handling
	r.Use(MetricsMiddleware(m))

	r.Get("/", apiHandler.HomeHandler)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", apiHandler.ListCategoriesHandler)
			r.Get("/tree", apiHandler.CategoryTreeHandler)
			r.Get("/{id}", apiHandler.GetCategoryHandler)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", apiHandler.ListProductsHandler)
			r.Get("/featured", apiHandler.FeaturedProductsHandler)
			r.Get("/recommendations", apiHandler.RecommendationsHandler)
			r.Get("/{id}", apiHandler.GetProductHandler)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", apiHandler.SearchHandler)
			r.Get("/suggestions", apiHandler.SuggestionsHandler)
			r.Get("/popular", apiHandler.PopularSearchesHandler)
		})

		r.Post("/chat", apiHandler.ChatHandler)
		r.Get("/chat/history", apiHandler.ChatHistoryHandler)
		r.Post("/chat/clear", apiHandler.ClearChatHandler)
	})

	return r
}
