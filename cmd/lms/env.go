package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/api/library"
	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/config"
	"github.com/shelfdesk/lms-client/internal/crypto"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
	"github.com/shelfdesk/lms-client/internal/session"
	"github.com/shelfdesk/lms-client/internal/storage"
)

const envKey = "env"

// env is everything a command needs, opened on first use
type env struct {
	out     io.Writer
	cfg     *config.Config
	log     *logger.Logger
	store   *storage.Store
	session *session.Session
	client  *library.Client
	loader  *catalog.Loader
}

// action wraps a command body so it runs with an opened env
func action(run func(ctx context.Context, c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, ok := c.App.Metadata[envKey].(*env)
		if !ok {
			return fmt.Errorf("command environment not initialized")
		}
		if err := e.open(c); err != nil {
			return err
		}
		ctx := logger.WithLogger(c.Context, e.log.WithFields(map[string]interface{}{
			"command": c.Command.FullName(),
		}))
		return run(ctx, c, e)
	}
}

func (e *env) open(c *cli.Context) error {
	if e.cfg != nil {
		return nil
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("api-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("storage"); v != "" {
		cfg.Storage.Path = v
	}

	logger.ForceSetup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		TimeFormat: time.RFC3339,
	})
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.Path, log)
	if err != nil {
		return err
	}

	sealer, err := crypto.NewEncryptionManager(cfg.Storage.EncryptionKey, filepath.Dir(cfg.Storage.Path), log)
	if err != nil {
		_ = store.Close()
		return err
	}

	sess := session.New(store, sealer, log)
	if err := sess.Init(); err != nil {
		_ = store.Close()
		return err
	}

	e.cfg = cfg
	e.log = log
	e.store = store
	e.session = sess
	e.client = library.NewClient(cfg.API.BaseURL,
		library.WithTimeout(cfg.API.Timeout),
		library.WithTokenSource(sess.Token),
		library.WithLogger(log),
	)
	e.loader = catalog.NewLoader(e.client, cfg.Catalog.CacheTTL, log, catalog.WithStore(store))
	return nil
}

func (e *env) close() error {
	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}

func (e *env) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.out, format, args...)
}

// catalog loads the current books and categories through the cache
func (e *env) catalog(ctx context.Context) (catalog.Snapshot, error) {
	snap, ok := e.loader.Load(ctx)
	if !ok {
		return catalog.Snapshot{}, ctx.Err()
	}
	return snap, nil
}

// categoryClient serves category reads from the catalog cache and drops
// the cache after every change
type categoryClient struct {
	*library.Client
	loader *catalog.Loader
}

func (e *env) categories() *categoryClient {
	return &categoryClient{Client: e.client, loader: e.loader}
}

func (c *categoryClient) GetCategories(ctx context.Context) ([]models.Category, error) {
	return c.loader.Categories(ctx)
}

func (c *categoryClient) CreateCategory(ctx context.Context, title string) (*models.Category, error) {
	created, err := c.Client.CreateCategory(ctx, title)
	if err == nil {
		c.loader.Invalidate()
	}
	return created, err
}

func (c *categoryClient) UpdateCategory(ctx context.Context, id int64, title string) (*models.Category, error) {
	updated, err := c.Client.UpdateCategory(ctx, id, title)
	if err == nil {
		c.loader.Invalidate()
	}
	return updated, err
}

func (c *categoryClient) DeleteCategory(ctx context.Context, id int64) error {
	err := c.Client.DeleteCategory(ctx, id)
	if err == nil {
		c.loader.Invalidate()
	}
	return err
}

// findBook looks a book up in the catalog by id
func (e *env) findBook(ctx context.Context, id string) (catalog.Book, error) {
	snap, err := e.catalog(ctx)
	if err != nil {
		return catalog.Book{}, err
	}
	for _, b := range snap.Books {
		if string(b.ID) == id {
			return b, nil
		}
	}
	return catalog.Book{}, fmt.Errorf("book %s not found", id)
}
