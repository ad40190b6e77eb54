package api

import (
	"context"
	"encoding/json"
	"net/http"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/core"
	"gwi.com/shop-assistant/internal/logger"
)

const serviceVersion = "2.0"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	catalog *core.CatalogService
	search  *core.SearchService
	chat    *core.ChatService
	db      Pinger

	generationEnabled bool
	sanitizeErrors    bool
	log               *logger.Logger
}

type Options struct {
	Catalog *core.CatalogService
	Search  *core.SearchService
	Chat    *core.ChatService
	DB      Pinger

	GenerationEnabled bool
	// SanitizeErrors hides internal error details from clients.
	SanitizeErrors bool
	Logger         *logger.Logger
}

func NewAPIHandler(opts Options) *APIHandler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &APIHandler{
		catalog:           opts.Catalog,
		search:            opts.Search,
		chat:              opts.Chat,
		db:                opts.DB,
		generationEnabled: opts.GenerationEnabled,
		sanitizeErrors:    opts.SanitizeErrors,
		log:               log.With("component", "api"),
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to encode response", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err, h.sanitizeErrors)})
}

func (h *APIHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Shop assistant backend is running!",
		"version":    serviceVersion,
		"ai_powered": h.generationEnabled,
		"endpoints": map[string]string{
			"chat":       "/api/chat",
			"products":   "/api/products",
			"categories": "/api/categories",
			"search":     "/api/search",
			"health":     "/api/health",
		},
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	generation := "disabled"
	if h.generationEnabled {
		generation = "enabled"
	}

	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Error("health check failed", "error", err)
		body := map[string]string{
			"status":     "unhealthy",
			"database":   "disconnected",
			"generation": generation,
		}
		if !h.sanitizeErrors {
			body["error"] = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "healthy",
		"database":   "connected",
		"generation": generation,
	})
}
