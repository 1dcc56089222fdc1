package handler

import "blogd/internal/service"

// Pagination holds page navigation data for templates.
type Pagination struct {
	Page       int
	TotalPages int
	TotalItems int64
}

// buildPagination derives template pagination from a service page.
func buildPagination(page service.PostPage) Pagination {
	return Pagination{
		Page:       page.Page,
		TotalPages: page.TotalPages(),
		TotalItems: page.Total,
	}
}
