package store

import (
	"math"
	"strings"

	"gorm.io/gorm"
)

type SortField string

const (
	SortName       SortField = "name"
	SortPrice      SortField = "price"
	SortRating     SortField = "rating"
	SortCreatedAt  SortField = "created_at"
	SortRelevance  SortField = "relevance"
	SortPopularity SortField = "popularity" // rating then review_count, both descending
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortField returns the field named by s, or def when s names none of the public fields.
func ParseSortField(s string, def SortField) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortName, SortPrice, SortRating, SortCreatedAt, SortRelevance:
		return f
	}
	return def
}

func ParseSortOrder(s string, def SortOrder) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case Asc, Desc:
		return o
	}
	return def
}

// ProductQuery describes a filtered, ordered page of active products.
// Zero-valued filters are not applied.
type ProductQuery struct {
	CategoryID       *uint
	CategoryName     string // case-insensitive substring of the category name
	Brand            string // case-insensitive substring of the brand
	MinPrice         *float64
	MaxPrice         *float64
	MinRating        *float64
	InStock          bool
	Featured         bool
	ExcludeProductID *uint
	SearchTerms      []string

	SortBy    SortField
	SortOrder SortOrder
	Page      int
	PerPage   int
}

// Normalize clamps paging into range and fills in missing ordering.
func (q ProductQuery) Normalize(defaultPerPage, maxPerPage int) ProductQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if maxPerPage > 0 && q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	if q.PerPage > 0 {
		q.Page = min(q.Page, lastAddressablePage(q.PerPage))
	}
	if q.SortBy == "" {
		q.SortBy = SortName
	}
	if q.SortOrder == "" {
		q.SortOrder = Asc
	}
	return q
}

func (q ProductQuery) Offset() int {
	if q.Page < 1 || q.PerPage < 1 {
		return 0
	}
	return (min(q.Page, lastAddressablePage(q.PerPage)) - 1) * q.PerPage
}

// lastAddressablePage is the largest page whose offset fits in an int.
func lastAddressablePage(perPage int) int {
	return math.MaxInt / perPage
}

// Filter applies every predicate of q. It is usable as a gorm scope.
func (q ProductQuery) Filter(db *gorm.DB) *gorm.DB {
	db = db.Where("products.is_active = ?", true)

	for _, term := range q.SearchTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		pattern := likePattern(term)
		db = db.Where(
			"(LOWER(products.name) LIKE ? ESCAPE '\\' OR "+
				"LOWER(COALESCE(products.description, '')) LIKE ? ESCAPE '\\' OR "+
				"LOWER(COALESCE(products.brand, '')) LIKE ? ESCAPE '\\' OR "+
				"LOWER(COALESCE(CAST(products.tags AS TEXT), '')) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern, pattern,
		)
	}

	if q.CategoryID != nil {
		db = db.Where("products.category_id = ?", *q.CategoryID)
	}
	if q.CategoryName != "" {
		db = db.Where(
			"products.category_id IN (SELECT categories.id FROM categories WHERE LOWER(categories.name) LIKE ? ESCAPE '\\')",
			likePattern(q.CategoryName),
		)
	}
	if q.Brand != "" {
		db = db.Where("LOWER(COALESCE(products.brand, '')) LIKE ? ESCAPE '\\'", likePattern(q.Brand))
	}
	if q.MinPrice != nil {
		db = db.Where("products.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("products.price <= ?", *q.MaxPrice)
	}
	if q.MinRating != nil {
		db = db.Where("products.rating >= ?", *q.MinRating)
	}
	if q.InStock {
		db = db.Where("products.stock_quantity > ?", 0)
	}
	if q.Featured {
		db = db.Where("products.is_featured = ?", true)
	}
	if q.ExcludeProductID != nil {
		db = db.Where("products.id <> ?", *q.ExcludeProductID)
	}
	return db
}

// OrderClause is the ORDER BY for q. The id tie-breaker keeps pages disjoint.
func (q ProductQuery) OrderClause() string {
	dir := "ASC"
	if q.SortOrder == Desc {
		dir = "DESC"
	}
	switch q.SortBy {
	case SortPrice:
		return "products.price " + dir + ", products.id ASC"
	case SortRating:
		return "products.rating " + dir + ", products.id ASC"
	case SortCreatedAt:
		return "products.created_at " + dir + ", products.id ASC"
	case SortRelevance:
		return "products.rating DESC, products.id ASC"
	case SortPopularity:
		return "products.rating DESC, products.review_count DESC, products.id ASC"
	default:
		return "products.name " + dir + ", products.id ASC"
	}
}

// SplitTerms breaks a raw search string on whitespace.
func SplitTerms(raw string) []string {
	return strings.Fields(raw)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

func NewPagination(page, perPage int, total int64) Pagination {
	pages := 0
	if perPage > 0 && total > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
