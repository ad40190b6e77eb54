package api

import (
	"net/http"

	"gwi.com/shop-assistant/internal/core"
	"gwi.com/shop-assistant/internal/store"
)

func (h *APIHandler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	params := core.CategoryListParams{
		ParentID:        q.ID("parent_id"),
		ActiveOnly:      q.Bool("active_only", true),
		IncludeChildren: q.Bool("include_children", false),
		IncludeProducts: q.Bool("include_products", false),
	}
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	categories, err := h.catalog.ListCategories(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"count":      len(categories),
		"categories": categories,
	})
}

func (h *APIHandler) GetCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := newQueryParams(r)
	includeChildren := q.Bool("include_children", false)
	includeProducts := q.Bool("include_products", false)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id, includeChildren, includeProducts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"category": category,
	})
}

func (h *APIHandler) CategoryTreeHandler(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalog.CategoryTree(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"category_tree": tree,
	})
}

func (h *APIHandler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	filters := q.productFilters()
	filters.Featured = q.Bool("featured", false)
	filters.SortBy = store.ParseSortField(q.String("sort_by"), store.SortName)
	filters.SortOrder = store.ParseSortOrder(q.String("sort_order"), store.Asc)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	products, page, err := h.catalog.ListProducts(r.Context(), filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"products":   products,
		"pagination": page,
	})
}

func (h *APIHandler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

func (h *APIHandler) FeaturedProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	limit := q.Int("limit", core.FeaturedDefaultLimit)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	products, err := h.catalog.FeaturedProducts(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(products),
		"products": products,
	})
}

func (h *APIHandler) RecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	categoryID := q.ID("category_id")
	exclude := q.ID("exclude_product_id")
	limit := q.Int("limit", core.RecommendationsDefaultLimit)
	if err := q.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	products, err := h.catalog.Recommendations(r.Context(), categoryID, exclude, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"count":           len(products),
		"recommendations": products,
	})
}
