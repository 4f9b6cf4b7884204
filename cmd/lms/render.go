package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/models"
)

func renderBooks(w io.Writer, page catalog.Page[catalog.Book], filter catalog.Filter) {
	if !filter.IsNone() {
		fmt.Fprintf(w, "Filter: %s\n", filter)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No books found.")
	}
	for _, b := range page.Items {
		status := "borrowed"
		if b.Availability {
			status = "available"
		}
		category := b.CategoryTitle
		if category == "" && b.CategoryID != nil {
			category = "#" + string(*b.CategoryID)
		}
		fmt.Fprintf(w, "%-6s %-40s %-24s %-18s %3.1f  %s\n",
			b.ID, clip(b.Title, 40), clip(b.Author, 24), clip(category, 18), b.Rating, status)
	}
	fmt.Fprintf(w, "Page %d of %d (%d books)\n", page.Page, page.TotalPages, page.Total)
}

func renderCategories(w io.Writer, page catalog.Page[models.Category], active *int64) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No categories found.")
	}
	for _, c := range page.Items {
		marker := " "
		if active != nil && *active == c.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-6d %s\n", marker, c.ID, c.Title)
	}
	fmt.Fprintf(w, "Page %d of %d (%d categories)\n", page.Page, page.TotalPages, page.Total)
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
