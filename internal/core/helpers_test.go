package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gwi.com/shop-assistant/internal/cache"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

var errBoom = errors.New("boom")

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(store.Options{
		Driver: "sqlite",
		DSN:    "file:core_" + name + "?mode=memory&cache=shared&_foreign_keys=on",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New("test", prometheus.NewRegistry())
}

func addCategory(t *testing.T, s *store.Store, name string, parent *uint) *store.Category {
	t.Helper()
	c := &store.Category{Name: name, ParentID: parent, IsActive: true}
	if err := s.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("CreateCategory(%q) error = %v", name, err)
	}
	return c
}

func addProduct(t *testing.T, s *store.Store, p store.Product) *store.Product {
	t.Helper()
	p.IsActive = true
	if err := s.CreateProduct(context.Background(), &p); err != nil {
		t.Fatalf("CreateProduct(%q) error = %v", p.Name, err)
	}
	return &p
}

func productNames(products []store.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// failingStore wraps a real store and fails the operations that are switched on.
type failingStore struct {
	*store.Store
	findErr    error
	logErr     error
	chatErr    error
	listErr    error
	treeReads  int
	treeReadMu sync.Mutex
}

func (f *failingStore) FindProducts(ctx context.Context, q store.ProductQuery) ([]store.Product, int64, error) {
	if f.findErr != nil {
		return nil, 0, f.findErr
	}
	return f.Store.FindProducts(ctx, q)
}

func (f *failingStore) CreateSearchLog(ctx context.Context, entry *store.SearchLog) error {
	if f.logErr != nil {
		return f.logErr
	}
	return f.Store.CreateSearchLog(ctx, entry)
}

func (f *failingStore) CreateChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	if f.chatErr != nil {
		return f.chatErr
	}
	return f.Store.CreateChatMessage(ctx, msg)
}

func (f *failingStore) ListCategories(ctx context.Context, cf store.CategoryFilter) ([]store.Category, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListCategories(ctx, cf)
}

func (f *failingStore) ListActiveCategories(ctx context.Context) ([]store.Category, error) {
	f.treeReadMu.Lock()
	f.treeReads++
	f.treeReadMu.Unlock()
	return f.Store.ListActiveCategories(ctx)
}

type stubGenerator struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (g *stubGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.calls++
	g.system, g.prompt = system, prompt
	return g.reply, g.err
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	panic("generator exploded")
}

// memCache is an in-process cache.Cache for tests.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }
