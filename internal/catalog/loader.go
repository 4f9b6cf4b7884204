package catalog

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shelfdesk/lms-client/internal/cache"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

const (
	booksKey      = "books"
	categoriesKey = "categories"

	// StorePrefix namespaces catalog entries in a persistent store
	StorePrefix = "catalog:"
)

// Source supplies raw catalog data, normally the library API client
type Source interface {
	GetBooks(ctx context.Context) ([]models.RawBook, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
}

// Snapshot is the catalog data a page renders from
type Snapshot struct {
	Books      []Book
	Categories []models.Category
}

// Loader fetches books and categories and keeps them for a while
type Loader struct {
	source     Source
	books      cache.Cache[string, []Book]
	categories cache.Cache[string, []models.Category]
	ttl        time.Duration
	log        *logger.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithStore keeps cached catalog data in kv so it is shared by every
// process using the same store
func WithStore(kv cache.KV) LoaderOption {
	return func(l *Loader) {
		l.books = cache.NewStoreCache[[]Book](kv, StorePrefix+booksKey+":", l.log)
		l.categories = cache.NewStoreCache[[]models.Category](kv, StorePrefix+categoriesKey+":", l.log)
	}
}

// NewLoader creates a loader; a ttl of zero disables caching
func NewLoader(source Source, ttl time.Duration, log *logger.Logger, opts ...LoaderOption) *Loader {
	if log == nil {
		log = logger.Get()
	}
	l := &Loader{
		source:     source,
		books:      cache.NewMemoryCache[string, []Book](log),
		categories: cache.NewMemoryCache[string, []models.Category](log),
		ttl:        ttl,
		log:        log.Component("catalog_loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches books and categories concurrently.
// A failed fetch is logged and replaced by an empty list. If ctx ends before
// both fetches finish, the result is discarded and ok is false.
func (l *Loader) Load(ctx context.Context) (snap Snapshot, ok bool) {
	log := logger.FromContextOr(ctx, "catalog_loader", l.log)
	var g errgroup.Group

	g.Go(func() error {
		snap.Books = l.loadBooks(ctx)
		return nil
	})
	g.Go(func() error {
		snap.Categories = l.loadCategories(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Debug("Catalog load cancelled, discarding result", map[string]interface{}{
			"error": err.Error(),
		})
		return Snapshot{}, false
	}

	log.Debug("Catalog loaded", map[string]interface{}{
		"books":      len(snap.Books),
		"categories": len(snap.Categories),
	})
	return snap, true
}

// Invalidate drops cached data so the next Load hits the backend
func (l *Loader) Invalidate() {
	l.books.Clear()
	l.categories.Clear()
}

func (l *Loader) loadBooks(ctx context.Context) []Book {
	books, err := cache.GetOrLoad(l.books, booksKey, l.ttl, func() ([]Book, error) {
		raws, err := l.source.GetBooks(ctx)
		if err != nil {
			return nil, err
		}
		return NormalizeAll(raws), nil
	})
	if l.ttl <= 0 {
		l.books.Clear()
	}
	if err != nil {
		logger.FromContextOr(ctx, "catalog_loader", l.log).Error("Failed to load books", map[string]interface{}{
			"error": err.Error(),
		})
		return []Book{}
	}
	if books == nil {
		books = []Book{}
	}
	return books
}

// Categories returns the category list through the cache. Unlike Load it
// reports a failed fetch to the caller.
func (l *Loader) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := cache.GetOrLoad(l.categories, categoriesKey, l.ttl, func() ([]models.Category, error) {
		categories, err := l.source.GetCategories(ctx)
		if err != nil {
			return nil, err
		}
		if categories == nil {
			categories = []models.Category{}
		}
		return categories, nil
	})
	if l.ttl <= 0 {
		l.categories.Clear()
	}
	return categories, err
}

func (l *Loader) loadCategories(ctx context.Context) []models.Category {
	categories, err := l.Categories(ctx)
	if err != nil {
		logger.FromContextOr(ctx, "catalog_loader", l.log).Error("Failed to load categories", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.Category{}
	}
	return categories
}
