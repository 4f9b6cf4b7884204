package catalog

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
	"github.com/shelfdesk/lms-client/internal/storage"
)

type fakeSource struct {
	books         []models.RawBook
	categories    []models.Category
	booksErr      error
	categoriesErr error
	booksCalls    atomic.Int32
	block         chan struct{}
}

func (f *fakeSource) GetBooks(ctx context.Context) ([]models.RawBook, error) {
	f.booksCalls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.books, f.booksErr
}

func (f *fakeSource) GetCategories(ctx context.Context) ([]models.Category, error) {
	return f.categories, f.categoriesErr
}

func quietLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.New(io.Discard)}
}

func TestLoader_Load(t *testing.T) {
	src := &fakeSource{
		books: []models.RawBook{
			{"book_id": 1.0, "book_title": "Dune", "book_category_id": 3.0},
		},
		categories: []models.Category{{ID: 3, Title: "Science Fiction"}},
	}
	l := NewLoader(src, time.Minute, quietLogger())

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	require.Len(t, snap.Books, 1)
	assert.Equal(t, "Dune", snap.Books[0].Title)
	assert.Equal(t, src.categories, snap.Categories)
}

func TestLoader_FailuresBecomeEmpty(t *testing.T) {
	src := &fakeSource{
		booksErr:      errors.New("HTTP 500"),
		categoriesErr: errors.New("connection refused"),
	}
	l := NewLoader(src, time.Minute, quietLogger())

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.NotNil(t, snap.Books)
	assert.Empty(t, snap.Books)
	assert.NotNil(t, snap.Categories)
	assert.Empty(t, snap.Categories)
}

func TestLoader_OneFailureDoesNotAffectTheOther(t *testing.T) {
	src := &fakeSource{
		booksErr:   errors.New("HTTP 502"),
		categories: []models.Category{{ID: 1, Title: "Poetry"}},
	}
	l := NewLoader(src, time.Minute, quietLogger())

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Empty(t, snap.Books)
	assert.Len(t, snap.Categories, 1)
}

func TestLoader_CachesWithinTTL(t *testing.T) {
	src := &fakeSource{books: []models.RawBook{{"id": 1.0}}}
	l := NewLoader(src, time.Minute, quietLogger())

	_, ok := l.Load(context.Background())
	require.True(t, ok)
	_, ok = l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(1), src.booksCalls.Load())

	l.Invalidate()
	_, ok = l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(2), src.booksCalls.Load())
}

func TestLoader_ZeroTTLAlwaysFetches(t *testing.T) {
	src := &fakeSource{books: []models.RawBook{{"id": 1.0}}}
	l := NewLoader(src, 0, quietLogger())

	l.Load(context.Background())
	l.Load(context.Background())
	assert.Equal(t, int32(2), src.booksCalls.Load())
}

func TestLoader_CancelledLoadIsDiscarded(t *testing.T) {
	src := &fakeSource{
		books: []models.RawBook{{"id": 1.0}},
		block: make(chan struct{}),
	}
	l := NewLoader(src, time.Minute, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	snap, ok := l.Load(ctx)
	assert.False(t, ok)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Categories)
}

func TestLoader_Categories(t *testing.T) {
	src := &fakeSource{categories: []models.Category{{ID: 1, Title: "Poetry"}}}
	l := NewLoader(src, time.Minute, quietLogger())

	categories, err := l.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src.categories, categories)

	failing := NewLoader(&fakeSource{categoriesErr: errors.New("HTTP 500")}, time.Minute, quietLogger())
	_, err = failing.Categories(context.Background())
	assert.Error(t, err)
}

func TestLoader_StoreIsSharedBetweenLoaders(t *testing.T) {
	store, err := storage.Open(storage.MemoryPath, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	src := &fakeSource{
		books:      []models.RawBook{{"book_id": 1.0, "book_title": "Dune", "book_category_id": 3.0}},
		categories: []models.Category{{ID: 3, Title: "Science Fiction"}},
	}

	first, ok := NewLoader(src, time.Minute, quietLogger(), WithStore(store)).Load(context.Background())
	require.True(t, ok)

	second, ok := NewLoader(src, time.Minute, quietLogger(), WithStore(store)).Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(1), src.booksCalls.Load(), "second loader is served from the store")
	assert.Equal(t, first, second)

	NewLoader(src, time.Minute, quietLogger(), WithStore(store)).Invalidate()
	_, ok = NewLoader(src, time.Minute, quietLogger(), WithStore(store)).Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(2), src.booksCalls.Load())
}
