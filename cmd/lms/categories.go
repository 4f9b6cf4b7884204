package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/admin"
)

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:    "categories",
		Aliases: []string{"category"},
		Usage:   "List and manage book categories",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List categories",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Only show titles containing `TEXT`",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page to show",
						Value: 1,
					},
				},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					m, err := loadCategories(ctx, e)
					if err != nil {
						return err
					}
					var active *int64
					if id, ok, _ := e.session.ActiveCategory(); ok {
						active = &id
					}
					renderCategories(e.out, m.Page(m.Search(c.String("search")), c.Int("page")), active)
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a category",
				ArgsUsage: "TITLE",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					m := admin.NewManager(e.categories(), e.cfg.Admin.PageSize, e.log)
					cat, err := m.Create(ctx, strings.Join(c.Args().Slice(), " "))
					if err != nil {
						return err
					}
					e.printf("Created category %d: %s\n", cat.ID, cat.Title)
					return nil
				}),
			},
			{
				Name:      "rename",
				Usage:     "Rename a category",
				ArgsUsage: "ID TITLE",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					m, index, err := categoryAt(ctx, c, e)
					if err != nil {
						return err
					}
					cat, err := m.Rename(ctx, index, strings.Join(c.Args().Tail(), " "))
					if err != nil {
						return err
					}
					e.printf("Renamed category %d to %s\n", cat.ID, cat.Title)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a category",
				ArgsUsage: "ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					m, index, err := categoryAt(ctx, c, e)
					if err != nil {
						return err
					}
					cat, err := m.Delete(ctx, index)
					if err != nil {
						return err
					}
					e.printf("Deleted category %d: %s\n", cat.ID, cat.Title)
					return nil
				}),
			},
		},
	}
}

func loadCategories(ctx context.Context, e *env) (*admin.Manager, error) {
	m := admin.NewManager(e.categories(), e.cfg.Admin.PageSize, e.log)
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// categoryAt loads the list and finds the category named by the first argument
func categoryAt(ctx context.Context, c *cli.Context, e *env) (*admin.Manager, int, error) {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("category id must be a number, got %q", c.Args().First())
	}
	m, err := loadCategories(ctx, e)
	if err != nil {
		return nil, 0, err
	}
	index, ok := m.IndexOf(id)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", admin.ErrNoSuchCategory, id)
	}
	return m, index, nil
}
