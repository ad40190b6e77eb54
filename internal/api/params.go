package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/store"
)

// queryParams reads typed query parameters and keeps the first parse failure.
type queryParams struct {
	values url.Values
	err    error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query()}
}

func (p *queryParams) raw(name string) (string, bool) {
	v := strings.TrimSpace(p.values.Get(name))
	return v, v != ""
}

func (p *queryParams) fail(name, kind string) {
	if p.err == nil {
		p.err = apperr.Validation("%s must be %s", name, kind)
	}
}

func (p *queryParams) String(name string) string {
	v, _ := p.raw(name)
	return v
}

func (p *queryParams) Int(name string, def int) int {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, "an integer")
		return def
	}
	return n
}

func (p *queryParams) ID(name string) *uint {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		p.fail(name, "a positive integer")
		return nil
	}
	id := uint(n)
	return &id
}

func (p *queryParams) Float(name string) *float64 {
	v, ok := p.raw(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(name, "a number")
		return nil
	}
	return &f
}

func (p *queryParams) Bool(name string, def bool) bool {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, "true or false")
		return def
	}
	return b
}

func (p *queryParams) Err() error { return p.err }

// productFilters reads the filter and paging parameters shared by product listing and search.
func (p *queryParams) productFilters() store.ProductQuery {
	return store.ProductQuery{
		CategoryID: p.ID("category_id"),
		Brand:      p.String("brand"),
		MinPrice:   p.Float("min_price"),
		MaxPrice:   p.Float("max_price"),
		InStock:    p.Bool("in_stock", false),
		Page:       p.Int("page", 1),
		PerPage:    p.Int("per_page", 0),
	}
}

func pathID(r *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return uint(n), nil
}
