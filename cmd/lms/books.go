package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/models"
)

func booksCommand() *cli.Command {
	return &cli.Command{
		Name:  "books",
		Usage: "List the catalog, optionally filtered by category",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category id or title; \"all\" for every book, \"none\" to clear the highlighted category",
			},
			&cli.Int64Flag{
				Name:  "toggle",
				Usage: "Highlight category `ID`, or clear it when it is already highlighted",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page to show",
				Value: 1,
			},
		},
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			snap, err := e.catalog(ctx)
			if err != nil {
				return err
			}

			var selector *catalog.Selector
			selector = catalog.NewSelector(func(catalog.Filter) {
				var active *int64
				if id, ok := selector.Active(); ok {
					active = &id
				}
				if err := e.session.SetActiveCategory(active); err != nil {
					e.log.Warn("Failed to remember category", map[string]interface{}{
						"error": err.Error(),
					})
				}
			})
			if id, ok, _ := e.session.ActiveCategory(); ok {
				selector.Restore(id)
			}

			filter, err := resolveFilter(c, selector, snap.Categories)
			if err != nil {
				return err
			}

			browser := catalog.NewBrowser(e.cfg.Catalog.PageSize)
			browser.SetBooks(snap.Books)
			browser.SetFilter(filter)
			browser.GoTo(c.Int("page"))

			renderBooks(e.out, browser.View(), filter)
			return nil
		}),
	}
}

// resolveFilter picks the filter the way the category sidebar does: a toggle
// wins, then an explicit --category, then the remembered highlight.
func resolveFilter(c *cli.Context, selector *catalog.Selector, categories []models.Category) (catalog.Filter, error) {
	if c.IsSet("toggle") {
		id := c.Int64("toggle")
		for _, cat := range categories {
			if cat.ID == id {
				return selector.Toggle(cat), nil
			}
		}
		return catalog.Filter{}, fmt.Errorf("category %d not found", id)
	}

	if c.IsSet("category") {
		filter := catalog.ParseFilter(c.String("category"))
		if filter.IsNone() {
			return selector.Reset(), nil
		}
		if err := filter.Validate(); err != nil {
			return catalog.Filter{}, err
		}
		return filter, nil
	}

	if id, ok := selector.Active(); ok {
		return catalog.CategoryIDFilter(id), nil
	}
	return catalog.NoFilter(), nil
}
