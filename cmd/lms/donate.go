package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/donation"
)

func donateCommand() *cli.Command {
	return &cli.Command{
		Name:  "donate",
		Usage: "Offer a book to the library",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Book title", Required: true},
			&cli.StringFlag{Name: "author", Usage: "Book author", Required: true},
			&cli.Int64Flag{Name: "category", Usage: "Category `ID`", Required: true},
			&cli.StringFlag{Name: "category-title", Usage: "Category title (looked up when omitted)"},
			&cli.StringFlag{Name: "mail", Usage: "Donor e-mail", Required: true},
			&cli.StringFlag{Name: "bs-id", Usage: "Donor ID number", Required: true},
			&cli.StringFlag{Name: "detail", Usage: "Description"},
			&cli.IntFlag{Name: "count", Usage: "Number of copies", Value: 1},
			&cli.PathFlag{Name: "cover", Usage: "Cover image `FILE`"},
			&cli.PathFlag{Name: "pdf", Usage: "PDF `FILE`"},
			&cli.PathFlag{Name: "audio", Usage: "Audio `FILE`"},
		},
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			form := donation.Form{
				Title:         c.String("title"),
				CategoryID:    c.Int64("category"),
				CategoryTitle: c.String("category-title"),
				Author:        c.String("author"),
				BSMail:        c.String("mail"),
				BSID:          c.String("bs-id"),
				Detail:        c.String("detail"),
				Count:         c.Int("count"),
				CoverPath:     c.Path("cover"),
				PDFPath:       c.Path("pdf"),
				AudioPath:     c.Path("audio"),
			}

			if form.CategoryTitle == "" {
				if categories, err := e.loader.Categories(ctx); err == nil {
					for _, cat := range categories {
						if cat.ID == form.CategoryID {
							form.CategoryTitle = cat.Title
							break
						}
					}
				}
			}

			result, err := donation.NewService(e.client, e.log).Submit(ctx, form)
			if err != nil {
				return err
			}
			if result.Receipt.ID != 0 {
				e.printf("Donation %d received (%s)\n", result.Receipt.ID, result.Receipt.Approval)
			} else {
				e.printf("Donation received\n")
			}
			return nil
		}),
	}
}
