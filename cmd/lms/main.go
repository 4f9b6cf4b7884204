// Command lms is a terminal front end for the library management service:
// browse the catalog, borrow and donate books, and manage categories.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/api/library"
	"github.com/shelfdesk/lms-client/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		logger.Get().Error("Command failed", map[string]interface{}{
			"error": err.Error(),
		})
		fmt.Fprintln(os.Stderr, "Error:", library.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "lms",
		Usage:     "Browse, borrow and donate books at the library",
		Version:   fmt.Sprintf("%s (%s) %s", version, commit, date),
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"LMS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Library API base `URL` (overrides config and LMS_API_BASE_URL)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "Path of the local state database",
			},
		},
		Before: func(c *cli.Context) error {
			c.App.Metadata = map[string]interface{}{envKey: &env{out: out}}
			return nil
		},
		After: func(c *cli.Context) error {
			if e, ok := c.App.Metadata[envKey].(*env); ok {
				return e.close()
			}
			return nil
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			booksCommand(),
			categoriesCommand(),
			borrowCommand(),
			donateCommand(),
		},
	}
}
