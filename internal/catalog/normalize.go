// Package catalog turns the backend's loosely shaped book records into a
// canonical form and derives the visible catalog page from them.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shelfdesk/lms-client/internal/models"
)

// UntitledBook is the title given to records that carry none
const UntitledBook = "Untitled"

// ID is an identifier as delivered by the backend, which sends some ids as
// JSON numbers and others as strings.
type ID string

// Number reports the numeric value of the id, if it is fully numeric
func (id ID) Number() (float64, bool) {
	return parseNumeric(string(id))
}

// Int64 returns the id as an integer, if it is one
func (id ID) Int64() (int64, bool) {
	if n, err := strconv.ParseInt(strings.TrimSpace(string(id)), 10, 64); err == nil {
		return n, true
	}
	f, ok := id.Number()
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Book is the canonical book record consumed by the filter engine and renderers
type Book struct {
	ID            ID      `json:"id,omitempty"`
	Title         string  `json:"title"`
	CoverImage    string  `json:"coverImage,omitempty"`
	Availability  bool    `json:"availability"`
	Author        string  `json:"author"`
	Rating        float64 `json:"rating"`
	CategoryID    *ID     `json:"categoryId"`
	CategoryTitle string  `json:"categoryTitle,omitempty"`
}

// path addresses a value in a raw record; more than one element descends
// into nested objects.
type path []string

func p(keys ...string) path { return keys }

// Alias tables, checked in order; the first present, non-null value wins.
// A new backend field name only needs an entry here.
var (
	idAliases           = []path{p("book_id"), p("id")}
	titleAliases        = []path{p("book_title"), p("title")}
	coverAliases        = []path{p("book_photo"), p("book_image"), p("coverImage"), p("image")}
	availabilityAliases = []path{p("book_availability"), p("book_availibility"), p("availability"), p("available")}
	authorAliases       = []path{p("book_author"), p("author")}
	ratingAliases       = []path{p("book_rating"), p("rating")}
	categoryIDAliases   = []path{
		p("book_category_id"),
		p("category_id"),
		p("book_category", "category_id"),
		p("book_category", "id"),
	}
	categoryTitleAliases = []path{
		p("category_title"),
		p("book_category", "category_title"),
		p("book_category", "title"),
		p("category"),
	}
)

// Normalize converts a raw backend record into a Book.
// It never fails: missing or malformed fields fall back to defaults.
func Normalize(raw models.RawBook) Book {
	book := Book{
		Title:  UntitledBook,
		Rating: 0,
	}

	if v, ok := resolve(raw, idAliases); ok {
		book.ID = ID(stringify(v))
	}
	if title, ok := resolveText(raw, titleAliases); ok {
		book.Title = title
	}
	if v, ok := resolve(raw, coverAliases); ok {
		book.CoverImage = stringify(v)
	}
	if v, ok := resolve(raw, availabilityAliases); ok {
		book.Availability = truthy(v)
	}
	if v, ok := resolve(raw, authorAliases); ok {
		book.Author = stringify(v)
	}
	if v, ok := resolve(raw, ratingAliases); ok {
		book.Rating = toNumber(v)
	}
	if v, ok := resolve(raw, categoryIDAliases); ok {
		id := ID(stringify(v))
		book.CategoryID = &id
	}
	if v, ok := resolveText(raw, categoryTitleAliases); ok {
		book.CategoryTitle = v
	}

	return book
}

// NormalizeAll normalizes every record, preserving order
func NormalizeAll(raws []models.RawBook) []Book {
	books := make([]Book, 0, len(raws))
	for _, raw := range raws {
		books = append(books, Normalize(raw))
	}
	return books
}

func resolve(raw models.RawBook, aliases []path) (interface{}, bool) {
	for _, alias := range aliases {
		if v, ok := lookup(raw, alias); ok {
			return v, true
		}
	}
	return nil, false
}

// resolveText is resolve restricted to non-blank string-like values
func resolveText(raw models.RawBook, aliases []path) (string, bool) {
	for _, alias := range aliases {
		v, ok := lookup(raw, alias)
		if !ok {
			continue
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s, true
		}
	}
	return "", false
}

func lookup(raw map[string]interface{}, keys path) (interface{}, bool) {
	var current interface{} = raw
	for _, key := range keys {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	switch obj := v.(type) {
	case map[string]interface{}:
		return obj, obj != nil
	case models.RawBook:
		return obj, obj != nil
	default:
		return nil, false
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// truthy reduces any value to a strict bool
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
		return val != ""
	case json.Number, float64, float32, int, int64:
		f := toNumber(val)
		return f != 0
	default:
		return true
	}
}

// toNumber coerces a value to a finite number, 0 when that is impossible
func toNumber(v interface{}) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		if strings.TrimSpace(val) == "" {
			return 0
		}
		n, ok := parseNumeric(val)
		if !ok {
			return 0
		}
		f = n
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseNumeric accepts only fully numeric, finite strings after trimming.
// Blank strings are not numeric.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
