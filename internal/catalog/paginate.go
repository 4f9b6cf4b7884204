package catalog

// DefaultPageSize is the number of books on one catalog page
const DefaultPageSize = 9

// Page is one page of a larger sequence
type Page[T any] struct {
	Items      []T `json:"pageItems"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// HasPrev reports whether a previous page exists
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// TotalPages returns max(1, ceil(count/pageSize))
func TotalPages(count, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// ClampPage moves page into [1, totalPages]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the requested page of items, clamping page into range.
// A non-positive pageSize falls back to DefaultPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := TotalPages(total, pageSize)
	page = ClampPage(page, totalPages)

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	pageItems := items[start:end:end]
	if pageItems == nil {
		pageItems = []T{}
	}

	return Page[T]{
		Items:      pageItems,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}
