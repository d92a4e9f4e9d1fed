package utils

import (
	"fmt"
	"strings"
)

// PaginationLink is a single navigation link in a paginated response.
type PaginationLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// TotalPages returns the number of pages needed to hold total items at the
// given page size, using integer ceiling division.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// BuildPaginationLinks derives self/first/last and conditional next/prev
// navigation links from the current window. baseURL must be an absolute URL;
// the skip/limit query string is appended, respecting any existing query.
func BuildPaginationLinks(baseURL string, skip, limit int, total int64) []PaginationLink {
	totalPages := TotalPages(total, limit)

	lastSkip := int64(0)
	if totalPages > 0 {
		lastSkip = (totalPages - 1) * int64(limit)
	}

	links := []PaginationLink{
		{Rel: "self", Href: paginationHref(baseURL, int64(skip), limit)},
		{Rel: "first", Href: paginationHref(baseURL, 0, limit)},
		{Rel: "last", Href: paginationHref(baseURL, lastSkip, limit)},
	}

	if int64(skip+limit) < total {
		links = append(links, PaginationLink{Rel: "next", Href: paginationHref(baseURL, int64(skip+limit), limit)})
	}

	if skip > 0 {
		prevSkip := skip - limit
		if prevSkip < 0 {
			prevSkip = 0
		}
		links = append(links, PaginationLink{Rel: "prev", Href: paginationHref(baseURL, int64(prevSkip), limit)})
	}

	return links
}

func paginationHref(baseURL string, skip int64, limit int) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sskip=%d&limit=%d", strings.TrimRight(baseURL, "/"), sep, skip, limit)
}
