package models

// PageFilter represents pagination query parameters for history endpoints
type PageFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=1000"`
}

// Normalize applies default pagination values
func (f *PageFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 100
	}
	if f.PageSize > 1000 {
		f.PageSize = 1000
	}
}

// Offset returns the row offset of the current page
func (f PageFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// TotalPages returns the number of pages needed for total rows
func (f PageFilter) TotalPages(total int64) int {
	if f.PageSize < 1 {
		return 0
	}
	pages := int(total) / f.PageSize
	if int(total)%f.PageSize > 0 {
		pages++
	}
	return pages
}

// ListResponse is a page of history records
type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}
