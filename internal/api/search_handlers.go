package api

import (
	"net"
	"net/http"

	"gwi.com/shop-assistant/internal/core"
	"gwi.com/shop-assistant/internal/store"
)

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	filters := q.productFilters()
	filters.MinRating = q.Float("min_rating")
	filters.SortBy = store.ParseSortField(q.String("sort_by"), store.SortRelevance)
	filters.SortOrder = store.ParseSortOrder(q.String("sort_order"), store.Desc)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := core.SearchRequest{
		Query:     q.String("q"),
		Filters:   filters,
		IPAddress: clientIP(r),
	}
	if sid := q.String("session_id"); sid != "" {
		req.SessionID = &sid
	}

	res, err := h.search.Search(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"query":      res.Query,
		"results":    res.Results,
		"pagination": res.Pagination,
	})
}

func (h *APIHandler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	text := q.String("q")
	limit := q.Int("limit", core.SuggestionsDefaultLimit)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	suggestions, err := h.search.Suggestions(r.Context(), text, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"query":       text,
		"suggestions": suggestions,
	})
}

func (h *APIHandler) PopularSearchesHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	limit := q.Int("limit", core.PopularDefaultLimit)
	days := q.Int("days", core.PopularDefaultDays)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	popular, err := h.search.PopularSearches(r.Context(), limit, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"popular_searches": popular,
	})
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP may already have rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
