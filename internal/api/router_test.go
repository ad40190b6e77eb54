package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"gwi.com/shop-assistant/internal/core"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	handler http.Handler
	store   *store.Store
}

func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(store.Options{
		Driver: "sqlite",
		DSN:    "file:api_" + name + "?mode=memory&cache=shared&_foreign_keys=on",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if _, err := st.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if db == nil {
		db = st
	}

	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	log := logger.Nop()
	composer := core.NewComposer(nil, 0, log, m)
	h := NewAPIHandler(Options{
		Catalog: core.NewCatalogService(st, nil, 0, log, m),
		Search:  core.NewSearchService(st, log, m),
		Chat:    core.NewChatService(st, composer, log, m),
		DB:      db,

		GenerationEnabled: composer.GenerationEnabled(),
		Logger:            log,
	})
	return &testServer{handler: NewRouter(h, m, reg), store: st}
}

func (s *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func names(t *testing.T, v interface{}) []string {
	t.Helper()
	list, ok := v.([]interface{})
	if !ok {
		t.Fatalf("expected a JSON array, got %T (%v)", v, v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.(map[string]interface{})["name"].(string))
	}
	return out
}

func TestHomeAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || body["ai_powered"] != false || body["version"] != serviceVersion {
		t.Errorf("GET / = %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if body["status"] != "healthy" || body["database"] != "connected" || body["generation"] != "disabled" {
		t.Errorf("health body = %v", body)
	}
}

func TestHealthUnhealthy(t *testing.T) {
	s := newTestServer(t, downPinger{})
	rec, body := s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusInternalServerError || body["status"] != "unhealthy" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"search without q", http.MethodGet, "/api/search", ""},
		{"search with blank q", http.MethodGet, "/api/search?q=%20%20", ""},
		{"non-numeric page", http.MethodGet, "/api/products?page=abc", ""},
		{"non-numeric price", http.MethodGet, "/api/products?min_price=cheap", ""},
		{"bad flag", http.MethodGet, "/api/categories?active_only=maybe", ""},
		{"bad rating", http.MethodGet, "/api/search?q=nike&min_rating=high", ""},
		{"bad category id", http.MethodGet, "/api/products/recommendations?category_id=-1", ""},
		{"bad days", http.MethodGet, "/api/search/popular?days=week", ""},
		{"bad product id", http.MethodGet, "/api/products/abc", ""},
		{"chat bad json", http.MethodPost, "/api/chat", "{not json"},
		{"chat empty message", http.MethodPost, "/api/chat", `{"message":"   "}`},
		{"chat without body", http.MethodPost, "/api/chat", ""},
		{"history without session", http.MethodGet, "/api/chat/history", ""},
		{"clear without session", http.MethodPost, "/api/chat/clear", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, tt.method, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	for _, target := range []string{"/api/products/9999", "/api/categories/9999"} {
		rec, body := s.do(t, http.MethodGet, target, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
		if !strings.Contains(body["error"].(string), "not found") {
			t.Errorf("GET %s error = %v", target, body["error"])
		}
	}
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/products?per_page=5&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	page := body["pagination"].(map[string]interface{})
	if page["total"] != float64(14) || page["pages"] != float64(3) || page["has_next"] != true || page["has_prev"] != true {
		t.Errorf("pagination = %v", page)
	}
	if got := names(t, body["products"]); len(got) != 5 {
		t.Errorf("page 2 = %v", got)
	}

	rec, body = s.do(t, http.MethodGet, "/api/products/featured", "")
	if rec.Code != http.StatusOK || body["count"] != float64(3) {
		t.Fatalf("featured = %d %v", rec.Code, body)
	}
	if got := names(t, body["products"]); got[0] != "iPhone 15 Pro" {
		t.Errorf("featured order = %v", got)
	}

	rec, body = s.do(t, http.MethodGet, "/api/products/recommendations?limit=2", "")
	if rec.Code != http.StatusOK || body["count"] != float64(2) {
		t.Errorf("recommendations = %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/products/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("product status = %d", rec.Code)
	}
	if p := body["product"].(map[string]interface{}); p["id"] != float64(1) || p["in_stock"] != true {
		t.Errorf("product = %v", p)
	}
}

func TestCategoryRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK || body["count"] != float64(5) {
		t.Fatalf("categories = %d %v", rec.Code, body)
	}
	want := []string{"Books", "Clothing", "Electronics", "Home & Garden", "Sports"}
	got := names(t, body["categories"])
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roots = %v, want %v", got, want)
		}
	}

	rec, body = s.do(t, http.MethodGet, "/api/categories/tree", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("tree status = %d", rec.Code)
	}
	tree := body["category_tree"].([]interface{})
	if len(tree) != 5 {
		t.Fatalf("tree roots = %d", len(tree))
	}
	electronics := tree[2].(map[string]interface{})
	if electronics["name"] != "Electronics" || len(electronics["children"].([]interface{})) != 5 {
		t.Errorf("electronics node = %v", electronics)
	}

	id := int(electronics["id"].(float64))
	rec, body = s.do(t, http.MethodGet, "/api/categories/"+strconv.Itoa(id)+"?include_children=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("category status = %d", rec.Code)
	}
	category := body["category"].(map[string]interface{})
	if children := names(t, category["children"]); len(children) != 5 || children[0] != "Audio" {
		t.Errorf("children = %v", children)
	}
	if _, ok := category["products"]; ok {
		t.Errorf("products included without include_products")
	}
}

func TestSearchRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/api/search?q=wireless&session_id=abc", "")
	if rec.Code != http.StatusOK || body["success"] != true || body["query"] != "wireless" {
		t.Fatalf("search = %d %v", rec.Code, body)
	}
	if got := names(t, body["results"]); len(got) != 2 || got[0] != "Sony WH-1000XM5" {
		t.Errorf("results = %v", got)
	}

	rec, body = s.do(t, http.MethodGet, "/api/search?q=zeppelin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("no-match status = %d", rec.Code)
	}
	if got := names(t, body["results"]); len(got) != 0 {
		t.Errorf("results = %v", got)
	}
	if total := body["pagination"].(map[string]interface{})["total"]; total != float64(0) {
		t.Errorf("total = %v", total)
	}

	rec, body = s.do(t, http.MethodGet, "/api/search/popular", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("popular status = %d", rec.Code)
	}
	if popular := body["popular_searches"].([]interface{}); len(popular) != 2 {
		t.Errorf("popular = %v", popular)
	}

	rec, body = s.do(t, http.MethodGet, "/api/search/suggestions?q=ni", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestions status = %d", rec.Code)
	}
	suggestions := body["suggestions"].([]interface{})
	if len(suggestions) == 0 || suggestions[len(suggestions)-1] != "Nike" {
		t.Errorf("suggestions = %v", suggestions)
	}

	_, body = s.do(t, http.MethodGet, "/api/search/suggestions?q=n", "")
	if got := body["suggestions"].([]interface{}); len(got) != 0 {
		t.Errorf("short query suggestions = %v", got)
	}
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodPost, "/api/chat", `{"message":"show me jeans under $100","session_id":"visitor-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d (%s)", rec.Code, rec.Body.String())
	}
	if body["success"] != true || body["session_id"] != "visitor-1" || body["reply_source"] != "fallback" {
		t.Errorf("chat body = %v", body)
	}
	if body["message_id"] == nil {
		t.Errorf("message_id missing")
	}
	if got := names(t, body["products"]); len(got) != 2 || got[0] != "Adidas Hoodie" {
		t.Errorf("candidates = %v", got)
	}
	filters := body["filters_applied"].(map[string]interface{})
	if filters["category"] != "clothing" || filters["price_range"] == nil {
		t.Errorf("filters = %v", filters)
	}

	rec, body = s.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	if rec.Code != http.StatusOK || body["session_id"] == "" {
		t.Errorf("chat without session = %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/chat/history?session_id=visitor-1", "")
	if rec.Code != http.StatusOK || body["message_count"] != float64(1) {
		t.Fatalf("history = %d %v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, "/api/chat/clear", `{"session_id":"visitor-1"}`)
	if rec.Code != http.StatusOK || body["deleted_count"] != float64(1) || body["message"] != "Cleared 1 messages" {
		t.Errorf("clear = %d %v", rec.Code, body)
	}

	_, body = s.do(t, http.MethodGet, "/api/chat/history?session_id=visitor-1", "")
	if body["message_count"] != float64(0) {
		t.Errorf("history after clear = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/products/1", "")

	rec, _ := s.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_http_requests_total{method="GET",path="/api/products/{id}",status="200"} 1`) {
		t.Errorf("metrics output missing route counter:\n%s", rec.Body.String())
	}
}

func TestProductsPastLastPage(t *testing.T) {
	s := newTestServer(t, nil)
	rec, body := s.do(t, http.MethodGet, "/api/products?page=9223372036854775807", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := names(t, body["products"]); len(got) != 0 {
		t.Errorf("products = %v, want none", got)
	}
	page := body["pagination"].(map[string]interface{})
	if page["total"] != float64(14) || page["has_next"] != false {
		t.Errorf("pagination = %v", page)
	}
}
