package catalog

import (
	"errors"
	"strconv"
	"strings"
)

// FilterType tags a Filter
type FilterType string

const (
	// FilterNone applies no filtering
	FilterNone FilterType = ""
	// FilterAll explicitly shows every book
	FilterAll FilterType = "all"
	// FilterCategory restricts books to one category
	FilterCategory FilterType = "category"
)

// ErrEmptyCategory is returned when a category filter carries no value
var ErrEmptyCategory = errors.New("category filter requires a value")

// Filter describes which books the catalog should show.
// The zero value is FilterNone.
type Filter struct {
	Type  FilterType `json:"type,omitempty"`
	Value string     `json:"value,omitempty"`
}

// NoFilter returns the pass-through filter
func NoFilter() Filter { return Filter{} }

// AllFilter returns the explicit pass-through filter
func AllFilter() Filter { return Filter{Type: FilterAll} }

// CategoryFilter filters by a category id or title.
// Fully numeric values are matched against category ids, anything else
// against category titles.
func CategoryFilter(value string) Filter {
	return Filter{Type: FilterCategory, Value: value}
}

// CategoryIDFilter filters by a numeric category id
func CategoryIDFilter(id int64) Filter {
	return CategoryFilter(strconv.FormatInt(id, 10))
}

// IsNone reports whether the filter lets every book through
func (f Filter) IsNone() bool {
	return f.Type == FilterNone || f.Type == FilterAll
}

// Validate checks a filter handed over by a selector before it reaches the engine
func (f Filter) Validate() error {
	switch f.Type {
	case FilterNone, FilterAll:
		return nil
	case FilterCategory:
		if strings.TrimSpace(f.Value) == "" {
			return ErrEmptyCategory
		}
		return nil
	default:
		// unknown kinds pass through the engine unchanged
		return nil
	}
}

func (f Filter) String() string {
	switch f.Type {
	case FilterNone:
		return "none"
	case FilterCategory:
		return "category=" + f.Value
	default:
		return string(f.Type)
	}
}

// ParseFilter builds a filter from user input: "" or "none" gives no filter,
// "all" the explicit pass-through, anything else a category filter.
func ParseFilter(input string) Filter {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "none":
		return NoFilter()
	case "all":
		return AllFilter()
	default:
		return CategoryFilter(strings.TrimSpace(input))
	}
}

// ApplyFilter returns the books matching f, in their original order.
// The input slice is never modified.
func ApplyFilter(books []Book, f Filter) []Book {
	switch f.Type {
	case FilterCategory:
		return filterByCategory(books, f.Value)
	default:
		// none, all and any kind this engine does not know yet
		return clone(books)
	}
}

func filterByCategory(books []Book, value string) []Book {
	out := make([]Book, 0, len(books))

	if want, ok := parseNumeric(value); ok {
		// ids take strict priority; titles are not consulted
		for _, b := range books {
			if b.CategoryID == nil {
				continue
			}
			if got, ok := b.CategoryID.Number(); ok && got == want {
				out = append(out, b)
			}
		}
		return out
	}

	want := strings.ToLower(value)
	for _, b := range books {
		if b.CategoryTitle == "" {
			continue
		}
		if strings.ToLower(b.CategoryTitle) == want {
			out = append(out, b)
		}
	}
	return out
}

func clone(books []Book) []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}
