package jsonapi

import (
	"net/url"
	"strconv"
)

// Pagination holds pagination information for generating links and metadata.
type Pagination struct {
	Total    int    // Total number of items
	Page     int    // Current page number (1-based)
	PageSize int    // Items per page
	BaseURL  string // Base URL for generating links
}

// NewPagination creates a new Pagination instance.
func NewPagination(total, page, pageSize int, baseURL string) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return &Pagination{Total: total, Page: page, PageSize: pageSize, BaseURL: baseURL}
}

// TotalPages returns the total number of pages, at least 1.
func (p *Pagination) TotalPages() int {
	pages := (p.Total + p.PageSize - 1) / p.PageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Links generates pagination links.
func (p *Pagination) Links() *Links {
	if p.BaseURL == "" {
		return nil
	}
	totalPages := p.TotalPages()

	links := &Links{
		Self:  p.buildURL(p.Page),
		First: p.buildURL(1),
		Last:  p.buildURL(totalPages),
	}
	if p.Page > 1 {
		links.Prev = p.buildURL(p.Page - 1)
	}
	if p.Page < totalPages {
		links.Next = p.buildURL(p.Page + 1)
	}
	return links
}

func (p *Pagination) buildURL(page int) string {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return p.BaseURL
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(p.PageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// Meta returns pagination metadata.
func (p *Pagination) Meta() Meta {
	return Meta{
		"total":    p.Total,
		"page":     p.Page,
		"pageSize": p.PageSize,
		"pages":    p.TotalPages(),
	}
}

// ParsePaginationParams reads page and pageSize (or page[number] and
// page[size]) from the query. Missing values are returned as 0 so the
// service applies its own defaults; malformed values are reported by name.
func ParsePaginationParams(query url.Values) (page, pageSize int, bad string) {
	parse := func(names ...string) (int, string) {
		for _, name := range names {
			if v := query.Get(name); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return 0, name
				}
				return n, ""
			}
		}
		return 0, ""
	}

	if page, bad = parse("page", "page[number]"); bad != "" {
		return 0, 0, bad
	}
	if pageSize, bad = parse("pageSize", "page[size]"); bad != "" {
		return 0, 0, bad
	}
	return page, pageSize, ""
}
