package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/borrow"
	"github.com/shelfdesk/lms-client/internal/catalog"
)

func borrowCommand() *cli.Command {
	bookFlag := &cli.StringFlag{
		Name:  "book",
		Usage: "Book `ID` to borrow instead of the selected one",
	}

	return &cli.Command{
		Name:  "borrow",
		Usage: "Pick a book and place a borrow request",
		Subcommands: []*cli.Command{
			{
				Name:      "select",
				Usage:     "Remember a book to borrow",
				ArgsUsage: "BOOK_ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one book id")
					}
					book, err := e.findBook(ctx, c.Args().First())
					if err != nil {
						return err
					}
					if err := e.session.SelectForBorrow(book); err != nil {
						return err
					}
					e.printf("Selected %q to borrow\n", book.Title)
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Put a book on the borrow list",
				ArgsUsage: "BOOK_ID",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one book id")
					}
					book, err := e.findBook(ctx, c.Args().First())
					if err != nil {
						return err
					}
					if err := e.session.AddBorrowedBook(book); err != nil {
						return err
					}
					e.printf("Added %q to the borrow list\n", book.Title)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "Show the borrow list",
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					books, err := e.session.BorrowedBooks()
					if err != nil {
						return err
					}
					if len(books) == 0 {
						e.printf("Borrow list is empty\n")
						return nil
					}
					for i, b := range books {
						e.printf("%d. %s (id %s)\n", i+1, b.Title, b.ID)
					}
					return nil
				}),
			},
			{
				Name:  "show",
				Usage: "Show the borrow form for the chosen book",
				Flags: []cli.Flag{bookFlag},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					forms, err := prepareBorrow(ctx, c, e)
					if err != nil {
						return err
					}
					renderForms(e, forms)
					return nil
				}),
			},
			{
				Name:  "submit",
				Usage: "Place the borrow request",
				Flags: []cli.Flag{bookFlag},
				Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
					forms, err := prepareBorrow(ctx, c, e)
					if err != nil {
						return err
					}
					if _, err := newBorrowService(e).Submit(ctx, forms); err != nil {
						return err
					}
					e.loader.Invalidate()
					e.printf("Borrow request placed successfully!\n")
					return nil
				}),
			},
		},
	}
}

func newBorrowService(e *env) *borrow.Service {
	return borrow.NewService(e.client, e.session, e.cfg.Borrow.DefaultDayLimit, e.log)
}

func prepareBorrow(ctx context.Context, c *cli.Context, e *env) ([]borrow.Form, error) {
	var explicit *catalog.Book
	if id := c.String("book"); id != "" {
		book, err := e.findBook(ctx, id)
		if err != nil {
			return nil, err
		}
		explicit = &book
	}
	return newBorrowService(e).Prepare(ctx, explicit)
}

func renderForms(e *env, forms []borrow.Form) {
	for _, f := range forms {
		e.printf("Book:        %s\n", f.Book.Title)
		if f.Book.Author != "" {
			e.printf("Author:      %s\n", f.Book.Author)
		}
		e.printf("Borrow date: %s\n", f.BorrowDate)
		e.printf("Return date: %s\n", f.ReturnDate)
		e.printf("Days:        %d\n", f.Days)
	}
}
