package catalog

import "sync"

// Browser holds the catalog view state: the loaded books, the active
// filter and the current page.
type Browser struct {
	mu       sync.Mutex
	books    []Book
	filter   Filter
	page     int
	pageSize int
}

// NewBrowser creates a browser showing pageSize books per page
func NewBrowser(pageSize int) *Browser {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Browser{page: 1, pageSize: pageSize}
}

// SetBooks replaces the loaded books. The current page is kept and clamped
// on the next View.
func (b *Browser) SetBooks(books []Book) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books = clone(books)
}

// SetFilter changes the active filter and goes back to the first page
func (b *Browser) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
	b.page = 1
}

// Filter returns the active filter
func (b *Browser) Filter() Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// GoTo requests a page; out of range values are clamped by View
func (b *Browser) GoTo(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
}

// Next moves one page forward, stopping at the last page
func (b *Browser) Next() Page[Book] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page++
	return b.viewLocked()
}

// Prev moves one page back, stopping at the first page
func (b *Browser) Prev() Page[Book] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page--
	return b.viewLocked()
}

// View computes the visible page and stores the clamped page number
func (b *Browser) View() Page[Book] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Browser) viewLocked() Page[Book] {
	filtered := ApplyFilter(b.books, b.filter)
	page := Paginate(filtered, b.page, b.pageSize)
	b.page = page.Page
	return page
}
