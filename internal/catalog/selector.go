package catalog

import "github.com/shelfdesk/lms-client/internal/models"

// Selector tracks the highlighted category in a category list and turns
// clicks into filters.
type Selector struct {
	active   *int64
	onSelect func(Filter)
}

// NewSelector creates a selector that hands every resulting filter to onSelect.
// onSelect may be nil.
func NewSelector(onSelect func(Filter)) *Selector {
	return &Selector{onSelect: onSelect}
}

// Active returns the highlighted category id, if any
func (s *Selector) Active() (int64, bool) {
	if s.active == nil {
		return 0, false
	}
	return *s.active, true
}

// Restore highlights id without emitting a filter
func (s *Selector) Restore(id int64) {
	s.active = &id
}

// Toggle selects cat, or clears the selection when cat is already active.
// Selection is by id so that filtering does not depend on title spelling.
func (s *Selector) Toggle(cat models.Category) Filter {
	if s.active != nil && *s.active == cat.ID {
		return s.Reset()
	}
	id := cat.ID
	s.active = &id
	return s.emit(CategoryIDFilter(id))
}

// Reset clears the selection
func (s *Selector) Reset() Filter {
	s.active = nil
	return s.emit(NoFilter())
}

func (s *Selector) emit(f Filter) Filter {
	if s.onSelect != nil {
		s.onSelect(f)
	}
	return f
}
