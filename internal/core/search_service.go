package core

import (
	"context"
	"strings"
	"time"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

const (
	SearchDefaultPerPage = 20
	SearchMaxPerPage     = 50

	SuggestionsDefaultLimit = 10
	PopularDefaultLimit     = 10
	PopularDefaultDays      = 7

	minSuggestionQueryLen = 2
)

// SearchStore is what searching needs from the catalog store.
type SearchStore interface {
	ProductFinder
	CreateSearchLog(ctx context.Context, entry *store.SearchLog) error
	PopularSearches(ctx context.Context, since time.Time, limit int) ([]store.PopularSearch, error)
	ProductNameSuggestions(ctx context.Context, text string, limit int) ([]string, error)
	BrandSuggestions(ctx context.Context, text string, limit int) ([]string, error)
}

type SearchRequest struct {
	Query     string
	Filters   store.ProductQuery // SearchTerms is derived from Query
	SessionID *string
	IPAddress string
}

type SearchResult struct {
	Query      string
	Results    []store.Product
	Pagination store.Pagination
}

type SearchService struct {
	store   SearchStore
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSearchService(st SearchStore, log *logger.Logger, m *metrics.Metrics) *SearchService {
	return &SearchService{
		store:   st,
		log:     log.With("service", "SearchService"),
		metrics: m,
		now:     time.Now,
	}
}

// Search runs a text query with filters and logs it. The log write never fails the search.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}

	q := req.Filters
	q.SearchTerms = store.SplitTerms(query)
	if q.SortBy == "" {
		q.SortBy = store.SortRelevance
	}
	if q.SortOrder == "" {
		q.SortOrder = store.Desc
	}
	q = q.Normalize(SearchDefaultPerPage, SearchMaxPerPage)

	products, total, err := s.store.FindProducts(ctx, q)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	s.metrics.RecordSearch()
	s.logSearch(ctx, query, total, req)

	return &SearchResult{
		Query:      query,
		Results:    nonNilProducts(products),
		Pagination: store.NewPagination(q.Page, q.PerPage, total),
	}, nil
}

func (s *SearchService) logSearch(ctx context.Context, query string, total int64, req SearchRequest) {
	entry := &store.SearchLog{
		Query:        query,
		ResultsCount: total,
		SessionID:    req.SessionID,
		IPAddress:    req.IPAddress,
	}
	if err := s.store.CreateSearchLog(ctx, entry); err != nil {
		s.log.Warn("Failed to record search log", "query", query, "error", err)
		s.metrics.RecordBestEffortFailure("search_log")
	}
}

// Suggestions offers product names then brands containing text, without duplicates.
func (s *SearchService) Suggestions(ctx context.Context, text string, limit int) ([]string, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minSuggestionQueryLen {
		return []string{}, nil
	}
	limit = clampLimit(limit, SuggestionsDefaultLimit)

	names, err := s.store.ProductNameSuggestions(ctx, text, limit/2)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	brands, err := s.store.BrandSuggestions(ctx, text, limit/2)
	if err != nil {
		return nil, storeUnavailable(err)
	}

	seen := make(map[string]bool, len(names)+len(brands))
	out := make([]string, 0, len(names)+len(brands))
	for _, v := range append(names, brands...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// PopularSearches ranks the queries logged during the trailing window of days.
func (s *SearchService) PopularSearches(ctx context.Context, limit, days int) ([]store.PopularSearch, error) {
	limit = clampLimit(limit, PopularDefaultLimit)
	if days < 1 {
		days = PopularDefaultDays
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	popular, err := s.store.PopularSearches(ctx, since, limit)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return popular, nil
}
