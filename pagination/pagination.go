package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the page size used when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100
)

// Meta describes the position of a page inside a collection.
type Meta struct {
	Total    int `json:"total" yaml:"total"`
	Page     int `json:"page" yaml:"page"`
	Limit    int `json:"limit" yaml:"limit"`
	LastPage int `json:"lastPage" yaml:"lastPage"`
}

// Page is one page of items and its metadata. len(Items) never exceeds Meta.Limit.
type Page[T any] struct {
	Items []T  `json:"items" yaml:"items"`
	Meta  Meta `json:"meta" yaml:"meta"`
}

// Params are the list inputs shared by every resource. Filters carry resource specific
// query parameters such as status or commercialId.
type Params struct {
	Page    int
	Limit   int
	Filters map[string]string
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage returns page, or 1 when page is not positive.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// LastPage returns ceil(total/limit), never less than 1.
func LastPage(total, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// NewMeta builds a consistent Meta, deriving LastPage from total and limit.
func NewMeta(total, page, limit int) Meta {
	limit = NormalizeLimit(limit)
	return Meta{
		Total:    total,
		Page:     NormalizePage(page),
		Limit:    limit,
		LastPage: LastPage(total, limit),
	}
}

// Normalize fills defaults and recomputes LastPage when the server omitted it.
func (m Meta) Normalize() Meta {
	if m.LastPage > 0 && m.Limit > 0 && m.Page > 0 {
		return m
	}
	return NewMeta(m.Total, m.Page, m.Limit)
}

// WithFilter returns a copy of p with key set to value. Empty values remove the key.
func (p Params) WithFilter(key, value string) Params {
	filters := make(map[string]string, len(p.Filters)+1)
	for k, v := range p.Filters {
		filters[k] = v
	}
	if value == "" {
		delete(filters, key)
	} else {
		filters[key] = value
	}
	p.Filters = filters
	return p
}

// Query encodes the params as page, limit and the non empty filters.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(NormalizePage(p.Page)))
	q.Set("limit", strconv.Itoa(NormalizeLimit(p.Limit)))
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}
