// Package listutil parses list query parameters (search, filters, sort and
// pagination) and computes page metadata for JSON list responses.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxSearchLength bounds the free-text query; longer input is truncated.
const MaxSearchLength = 100

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 24

// MaxPerPage caps per_page.
const MaxPerPage = 100

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int
}

// FilterParams carries search and filter parameters.
// Filters map a key to every value given for it (?brand=LG&brand=Samsung).
type FilterParams struct {
	Search  string
	Filters map[string][]string
}

// Has reports whether key has at least one value.
func (f FilterParams) Has(key string) bool {
	return len(f.Filters[key]) > 0
}

// First returns the first value of key, or "".
func (f FilterParams) First(key string) string {
	if v := f.Filters[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ListParams combines all list parameters.
type ListParams struct {
	PageParams
	FilterParams
	Sort string // one of the allowed sort keys, or "" for natural order
}

// PageInfo carries pagination metadata.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ParsePageParams extracts page and per_page.
// POST: 1 <= PerPage <= MaxPerPage; Page >= 1
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	return PageParams{Page: page, PerPage: perPage}
}

// ParseSort returns the sort key when it is allowed, "" otherwise.
func ParseSort(q url.Values, allowed []string) string {
	s := q.Get("sort")
	if slices.Contains(allowed, s) {
		return s
	}
	return ""
}

// ParseFilterParams extracts q and the named filters. Empty values are dropped.
// PRE: filterKeys lists the allowed filter parameter names
// POST: Search is trimmed and at most MaxSearchLength runes; only recognised keys are kept
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  TrimSearch(q.Get("q")),
		Filters: make(map[string][]string),
	}
	for _, key := range filterKeys {
		for _, v := range q[key] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					fp.Filters[key] = append(fp.Filters[key], part)
				}
			}
		}
	}
	return fp
}

// ParseListParams parses all list parameters.
func ParseListParams(q url.Values, allowedSorts, filterKeys []string) ListParams {
	return ListParams{
		PageParams:   ParsePageParams(q),
		FilterParams: ParseFilterParams(q, filterKeys),
		Sort:         ParseSort(q, allowedSorts),
	}
}

// TrimSearch trims whitespace and truncates to MaxSearchLength runes.
func TrimSearch(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxSearchLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxSearchLength]))
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: Page clamped to [1, TotalPages]; TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Window returns the [start, end) bounds of the current page within Total rows.
func (p PageInfo) Window() (start, end int) {
	start = min(p.Offset(), p.Total)
	end = min(start+p.PerPage, p.Total)
	return start, end
}

// HasNext reports whether a later page exists.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}
