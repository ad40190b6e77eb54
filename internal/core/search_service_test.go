package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/store"
)

func TestSearchRequiresQuery(t *testing.T) {
	svc := NewSearchService(newTestStore(t), logger.Nop(), nil)
	for _, q := range []string{"", "   "} {
		if _, err := svc.Search(context.Background(), SearchRequest{Query: q}); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("Search(%q) error = %v, want validation", q, err)
		}
	}
}

func TestSearchDefaultsAndLogging(t *testing.T) {
	s := newTestStore(t)
	addProduct(t, s, store.Product{Name: "Wireless Mouse", SKU: "m1", Price: 25, Rating: 4.0})
	addProduct(t, s, store.Product{Name: "Wireless Keyboard", SKU: "k1", Price: 45, Rating: 4.7})
	addProduct(t, s, store.Product{Name: "Desk Lamp", SKU: "l1", Price: 30, Rating: 5})
	m := newTestMetrics()
	svc := NewSearchService(s, logger.Nop(), m)
	ctx := context.Background()
	session := "abc"

	res, err := svc.Search(ctx, SearchRequest{
		Query:     "  wireless ",
		Filters:   store.ProductQuery{PerPage: 500},
		SessionID: &session,
		IPAddress: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.Query != "wireless" {
		t.Errorf("query = %q", res.Query)
	}
	// Relevance: best rated first.
	if got := productNames(res.Results); !equalStrings(got, []string{"Wireless Keyboard", "Wireless Mouse"}) {
		t.Errorf("results = %v", got)
	}
	if res.Pagination.PerPage != SearchMaxPerPage || res.Pagination.Total != 2 {
		t.Errorf("pagination = %+v", res.Pagination)
	}
	if got := testutil.ToFloat64(m.SearchesTotal); got != 1 {
		t.Errorf("searches = %v, want 1", got)
	}

	none, err := svc.Search(ctx, SearchRequest{Query: "zeppelin"})
	if err != nil {
		t.Fatalf("Search(no match) error = %v", err)
	}
	if none.Results == nil || len(none.Results) != 0 || none.Pagination.Total != 0 || none.Pagination.Pages != 0 {
		t.Errorf("no-match result = %+v", none)
	}

	popular, err := svc.PopularSearches(ctx, 0, 0)
	if err != nil {
		t.Fatalf("PopularSearches() error = %v", err)
	}
	if len(popular) != 2 {
		t.Fatalf("popular = %+v, want both logged queries", popular)
	}
}

func TestSearchLogFailureIsSwallowed(t *testing.T) {
	st := &failingStore{Store: newTestStore(t), logErr: errBoom}
	addProduct(t, st.Store, store.Product{Name: "Kettle", SKU: "k", Price: 20})
	m := newTestMetrics()
	svc := NewSearchService(st, logger.Nop(), m)

	res, err := svc.Search(context.Background(), SearchRequest{Query: "kettle"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Results) != 1 {
		t.Errorf("results = %v", productNames(res.Results))
	}
	if got := testutil.ToFloat64(m.BestEffortFailures.WithLabelValues("search_log")); got != 1 {
		t.Errorf("best effort failures = %v, want 1", got)
	}
}

func TestSearchStoreFailure(t *testing.T) {
	st := &failingStore{Store: newTestStore(t), findErr: errBoom}
	svc := NewSearchService(st, logger.Nop(), nil)
	if _, err := svc.Search(context.Background(), SearchRequest{Query: "x"}); !apperr.Is(err, apperr.KindDependency) {
		t.Errorf("Search() error = %v, want dependency", err)
	}
}

func TestSuggestions(t *testing.T) {
	s := newTestStore(t)
	addProduct(t, s, store.Product{Name: "Acme", SKU: "a", Price: 1, Brand: "Acme"})
	addProduct(t, s, store.Product{Name: "Jacket", SKU: "b", Price: 1, Brand: "Acme"})
	addProduct(t, s, store.Product{Name: "Tractor", SKU: "c", Price: 1, Brand: "Farmco"})
	svc := NewSearchService(s, logger.Nop(), nil)
	ctx := context.Background()

	got, err := svc.Suggestions(ctx, "ac", 10)
	if err != nil {
		t.Fatalf("Suggestions() error = %v", err)
	}
	if !equalStrings(got, []string{"Acme", "Jacket", "Tractor"}) {
		t.Errorf("Suggestions() = %v", got)
	}

	got, _ = svc.Suggestions(ctx, "ac", 2)
	if !equalStrings(got, []string{"Acme"}) {
		t.Errorf("Suggestions(limit 2) = %v", got)
	}

	short, err := svc.Suggestions(ctx, "a", 10)
	if err != nil || short == nil || len(short) != 0 {
		t.Errorf("Suggestions(short) = %v, %v", short, err)
	}
}

func TestPopularSearchesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, q := range []string{"lamp", "lamp", "desk"} {
		if err := s.CreateSearchLog(ctx, &store.SearchLog{Query: q}); err != nil {
			t.Fatalf("CreateSearchLog() error = %v", err)
		}
	}
	svc := NewSearchService(s, logger.Nop(), nil)

	got, err := svc.PopularSearches(ctx, 1, 7)
	if err != nil {
		t.Fatalf("PopularSearches() error = %v", err)
	}
	if len(got) != 1 || got[0].Query != "lamp" || got[0].Count != 2 {
		t.Errorf("PopularSearches() = %+v", got)
	}

	// Every row predates a window that starts in the future.
	svc.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	got, err = svc.PopularSearches(ctx, 10, 7)
	if err != nil {
		t.Fatalf("PopularSearches() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("PopularSearches(shifted) = %+v, want empty", got)
	}
}
