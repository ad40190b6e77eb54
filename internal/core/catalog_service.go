package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/cache"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

const (
	ProductsDefaultPerPage = 20
	ProductsMaxPerPage     = 100

	FeaturedDefaultLimit        = 10
	RecommendationsDefaultLimit = 5
	maxListLimit                = 100

	DefaultTreeTTL  = 60 * time.Second
	categoryTreeKey = "category_tree"
)

// ProductFinder runs catalog product queries.
type ProductFinder interface {
	FindProducts(ctx context.Context, q store.ProductQuery) ([]store.Product, int64, error)
}

// CatalogReader is the read side of the catalog store.
type CatalogReader interface {
	ProductFinder
	GetProduct(ctx context.Context, id uint) (*store.Product, error)
	ListCategories(ctx context.Context, f store.CategoryFilter) ([]store.Category, error)
	ListActiveCategories(ctx context.Context) ([]store.Category, error)
	GetCategory(ctx context.Context, id uint) (*store.Category, error)
	ActiveProductsByCategory(ctx context.Context, categoryID uint) ([]store.Product, error)
}

// CategoryView is a category with optional expansions. A nil expansion is omitted
// from JSON; a requested but empty one renders as [].
type CategoryView struct {
	store.Category
	Children *[]store.Category `json:"children,omitempty"`
	Products *[]store.Product  `json:"products,omitempty"`
}

type CategoryListParams struct {
	ParentID        *uint
	ActiveOnly      bool
	IncludeChildren bool
	IncludeProducts bool
}

type CatalogService struct {
	store   CatalogReader
	cache   cache.Cache // nil disables tree caching
	treeTTL time.Duration
	group   singleflight.Group
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewCatalogService(st CatalogReader, c cache.Cache, treeTTL time.Duration, log *logger.Logger, m *metrics.Metrics) *CatalogService {
	if treeTTL <= 0 {
		treeTTL = DefaultTreeTTL
	}
	return &CatalogService{
		store:   st,
		cache:   c,
		treeTTL: treeTTL,
		log:     log.With("service", "CatalogService"),
		metrics: m,
	}
}

func storeUnavailable(err error) error {
	return apperr.Dependency("catalog store unavailable", err)
}

func (s *CatalogService) ListCategories(ctx context.Context, p CategoryListParams) ([]CategoryView, error) {
	categories, err := s.store.ListCategories(ctx, store.CategoryFilter{ParentID: p.ParentID, ActiveOnly: p.ActiveOnly})
	if err != nil {
		return nil, storeUnavailable(err)
	}

	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		v, err := s.expand(ctx, c, p.IncludeChildren, p.IncludeProducts)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint, includeChildren, includeProducts bool) (*CategoryView, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if c == nil {
		return nil, apperr.NotFound("Category not found")
	}
	v, err := s.expand(ctx, *c, includeChildren, includeProducts)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *CatalogService) expand(ctx context.Context, c store.Category, includeChildren, includeProducts bool) (CategoryView, error) {
	v := CategoryView{Category: c}
	if includeChildren {
		children, err := s.store.ListCategories(ctx, store.CategoryFilter{ParentID: &c.ID, ActiveOnly: true})
		if err != nil {
			return v, storeUnavailable(err)
		}
		if children == nil {
			children = []store.Category{}
		}
		v.Children = &children
	}
	if includeProducts {
		products, err := s.store.ActiveProductsByCategory(ctx, c.ID)
		if err != nil {
			return v, storeUnavailable(err)
		}
		if products == nil {
			products = []store.Product{}
		}
		v.Products = &products
	}
	return v, nil
}

// CategoryTree returns the active category forest. With a cache configured the
// rendered tree is reused for treeTTL; cache failures only cost a store read.
func (s *CatalogService) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	if tree, ok := s.cachedTree(ctx); ok {
		return tree, nil
	}

	// Callers coalesced onto this rebuild must not inherit the first caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(categoryTreeKey, func() (interface{}, error) {
		rows, err := s.store.ListActiveCategories(shared)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		tree := BuildCategoryTree(rows, nil)
		s.storeTree(shared, tree)
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]CategoryNode), nil
}

func (s *CatalogService) cachedTree(ctx context.Context) ([]CategoryNode, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, categoryTreeKey)
	switch {
	case errors.Is(err, cache.ErrMiss):
		s.metrics.RecordTreeCacheLookup("miss")
		return nil, false
	case err != nil:
		s.log.Warn("Category tree cache read failed", "error", err)
		s.metrics.RecordTreeCacheLookup("error")
		return nil, false
	}

	var tree []CategoryNode
	if err := json.Unmarshal(raw, &tree); err != nil {
		s.log.Warn("Discarding undecodable category tree cache entry", "error", err)
		s.metrics.RecordTreeCacheLookup("error")
		return nil, false
	}
	s.metrics.RecordTreeCacheLookup("hit")
	return tree, true
}

func (s *CatalogService) storeTree(ctx context.Context, tree []CategoryNode) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(tree)
	if err == nil {
		err = s.cache.Set(ctx, categoryTreeKey, raw, s.treeTTL)
	}
	if err != nil {
		s.log.Warn("Category tree cache write failed", "error", err)
		s.metrics.RecordBestEffortFailure("tree_cache_write")
	}
}

// InvalidateTree drops the cached tree, if any.
func (s *CatalogService) InvalidateTree(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, categoryTreeKey); err != nil {
		s.log.Warn("Category tree cache invalidation failed", "error", err)
		s.metrics.RecordBestEffortFailure("tree_cache_invalidate")
	}
}

// ListProducts returns one page of products. Missing ordering defaults to name ascending.
func (s *CatalogService) ListProducts(ctx context.Context, q store.ProductQuery) ([]store.Product, store.Pagination, error) {
	q.SearchTerms = nil
	q = q.Normalize(ProductsDefaultPerPage, ProductsMaxPerPage)

	products, total, err := s.store.FindProducts(ctx, q)
	if err != nil {
		return nil, store.Pagination{}, storeUnavailable(err)
	}
	return nonNilProducts(products), store.NewPagination(q.Page, q.PerPage, total), nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*store.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if p == nil {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

// FeaturedProducts returns featured products, best rated first.
func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]store.Product, error) {
	q := store.ProductQuery{
		Featured:  true,
		SortBy:    store.SortRating,
		SortOrder: store.Desc,
		Page:      1,
		PerPage:   clampLimit(limit, FeaturedDefaultLimit),
	}
	products, _, err := s.store.FindProducts(ctx, q)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return nonNilProducts(products), nil
}

// Recommendations ranks by rating then review count, optionally within one category.
func (s *CatalogService) Recommendations(ctx context.Context, categoryID, excludeProductID *uint, limit int) ([]store.Product, error) {
	q := store.ProductQuery{
		CategoryID:       categoryID,
		ExcludeProductID: excludeProductID,
		SortBy:           store.SortPopularity,
		SortOrder:        store.Desc,
		Page:             1,
		PerPage:          clampLimit(limit, RecommendationsDefaultLimit),
	}
	products, _, err := s.store.FindProducts(ctx, q)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return nonNilProducts(products), nil
}

func clampLimit(limit, def int) int {
	if limit < 1 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nonNilProducts(p []store.Product) []store.Product {
	if p == nil {
		return []store.Product{}
	}
	return p
}
