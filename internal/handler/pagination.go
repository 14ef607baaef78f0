package handler

import "fmt"

// Pagination holds pagination data for admin list templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	PerPage     int
	BaseURL     string
}

// BuildPagination creates pagination data for an admin list page.
// baseURL is the path without query string (e.g., "/admin/users").
func BuildPagination(currentPage int, totalItems int64, perPage int, baseURL string) Pagination {
	totalPages := int((totalItems + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	return Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PerPage:     perPage,
		BaseURL:     baseURL,
	}
}

// Offset returns the row offset of the current page.
func (p Pagination) Offset() int64 {
	return int64(p.CurrentPage-1) * int64(p.PerPage)
}

// HasPrev returns true when a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext returns true when a following page exists.
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// PageURL returns the URL for a specific page number.
func (p Pagination) PageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", p.BaseURL, page)
}

// PrevURL returns the URL for the previous page.
func (p Pagination) PrevURL() string {
	return p.PageURL(p.CurrentPage - 1)
}

// NextURL returns the URL for the next page.
func (p Pagination) NextURL() string {
	return p.PageURL(p.CurrentPage + 1)
}

// ShouldShow returns true if pagination should be displayed (more than 1 page).
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// PageRange returns a description of the current page range.
func (p Pagination) PageRange() string {
	if p.TotalItems == 0 {
		return "0-0"
	}
	start := (p.CurrentPage-1)*p.PerPage + 1
	end := p.CurrentPage * p.PerPage
	if int64(end) > p.TotalItems {
		end = int(p.TotalItems)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
