package utils

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type QueryOptions struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Status   string
}

// ParseQueryOptions reads paging and filters from a local storefront request.
func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()
	page, limit := ClampPage(ParseInt(q.Get("page")), ParseInt(q.Get("limit")))
	return QueryOptions{
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Status:   strings.TrimSpace(q.Get("status")),
	}
}

// ClampPage applies the backend's defaults and ceiling to a page/limit pair.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// PageQuery builds the page/limit query for an outgoing list request. Empty extra values are
// left out.
func PageQuery(page, limit int, extra map[string]string) url.Values {
	page, limit = ClampPage(page, limit)
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	for k, v := range extra {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func ParseInt(s string) int {
	val, _ := strconv.Atoi(strings.TrimSpace(s))
	return val
}

func ParseFloat(s string) float64 {
	val, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return val
}

func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}
