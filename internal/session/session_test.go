package session

import (
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/crypto"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
	"github.com/shelfdesk/lms-client/internal/storage"
)

func quietLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.New(io.Discard)}
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.MemoryPath, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newSealer(t *testing.T) *crypto.EncryptionManager {
	t.Helper()
	em, err := crypto.NewEncryptionManagerWithKey(crypto.DeriveKeyFromPassword("test"), quietLogger())
	require.NoError(t, err)
	return em
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestSession_SetPersistsEncryptedToken(t *testing.T) {
	store := newStore(t)
	s := New(store, newSealer(t), quietLogger())

	token := signToken(t, jwt.MapClaims{
		"user_id": 12,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, s.Set(models.User{Name: "ada"}, token))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, token, s.Token())
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "ada", user.Name)
	assert.Equal(t, "12", s.Claims().UserID)
	assert.Equal(t, "admin", s.Claims().Role)

	auth, _, err := store.Get(KeyAuth)
	require.NoError(t, err)
	assert.Equal(t, "true", auth)

	stored, ok, err := store.Get(KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, token, stored)

	userJSON, _, err := store.Get(KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "ada"}`, userJSON)
}

func TestSession_InitRestores(t *testing.T) {
	store := newStore(t)
	sealer := newSealer(t)
	token := signToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(time.Hour).Unix()})

	require.NoError(t, New(store, sealer, quietLogger()).Set(models.User{Name: "grace"}, token))

	restored := New(store, sealer, quietLogger())
	require.NoError(t, restored.Init())

	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, token, restored.Token())
	assert.Equal(t, "7", restored.Claims().UserID)
	user, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, "grace", user.Name)
}

func TestSession_InitExpiredTokenSignsOut(t *testing.T) {
	store := newStore(t)
	sealer := newSealer(t)
	token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})

	require.NoError(t, New(store, sealer, quietLogger()).Set(models.User{Name: "ada"}, token))

	restored := New(store, sealer, quietLogger())
	require.NoError(t, restored.Init())

	assert.False(t, restored.IsAuthenticated())
	assert.Empty(t, restored.Token())
	_, ok := restored.User()
	assert.False(t, ok)

	auth, _, err := store.Get(KeyAuth)
	require.NoError(t, err)
	assert.Equal(t, "false", auth)
	_, ok, err = store.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_ExpiryIsCheckedOnRead(t *testing.T) {
	s := New(newStore(t), nil, quietLogger())
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Set(models.User{Name: "ada"}, signToken(t, jwt.MapClaims{"exp": exp.Unix()})))
	require.True(t, s.IsAuthenticated())

	s.now = func() time.Time { return exp.Add(time.Second) }
	assert.False(t, s.IsAuthenticated())
}

func TestSession_OpaqueToken(t *testing.T) {
	s := New(newStore(t), nil, quietLogger())
	require.NoError(t, s.Set(models.User{Name: "ada"}, "not-a-jwt"))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "not-a-jwt", s.Token())
	assert.Equal(t, Claims{}, s.Claims())
}

func TestSession_InitWithoutState(t *testing.T) {
	s := New(newStore(t), newSealer(t), quietLogger())
	require.NoError(t, s.Init())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestSession_InitIgnoresCorruptValues(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(KeyAuth, "true"))
	require.NoError(t, store.Set(KeyUser, "{not json"))
	require.NoError(t, store.Set(KeyToken, "garbage"))

	s := New(store, nil, quietLogger())
	require.NoError(t, s.Init())

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "garbage", s.Token())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestSession_InitUnreadableTokenSignsOut(t *testing.T) {
	store := newStore(t)
	token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, New(store, newSealer(t), quietLogger()).Set(models.User{Name: "ada"}, token))

	otherKey, err := crypto.NewEncryptionManagerWithKey(crypto.DeriveKeyFromPassword("rotated"), quietLogger())
	require.NoError(t, err)

	s := New(store, otherKey, quietLogger())
	require.NoError(t, s.Init())

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	_, ok := s.User()
	assert.False(t, ok)

	auth, _, err := store.Get(KeyAuth)
	require.NoError(t, err)
	assert.Equal(t, "false", auth)
	_, ok, err = store.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_ClearKeepsBorrowSelection(t *testing.T) {
	store := newStore(t)
	s := New(store, nil, quietLogger())
	require.NoError(t, s.Set(models.User{Name: "ada"}, "tok"))
	require.NoError(t, s.SelectForBorrow(catalog.Book{ID: "3", Title: "Dune"}))

	require.NoError(t, s.Clear())
	assert.False(t, s.IsAuthenticated())

	book, ok, err := s.SelectedForBorrow()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dune", book.Title)
}

func TestSession_TeardownRemovesEverything(t *testing.T) {
	store := newStore(t)
	s := New(store, nil, quietLogger())
	require.NoError(t, s.Set(models.User{Name: "ada"}, "tok"))
	require.NoError(t, s.SelectForBorrow(catalog.Book{ID: "3"}))
	require.NoError(t, s.AddBorrowedBook(catalog.Book{ID: "4"}))

	require.NoError(t, s.Teardown())

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.False(t, s.IsAuthenticated())
}

func TestSession_BorrowSelection(t *testing.T) {
	store := newStore(t)
	s := New(store, nil, quietLogger())

	_, ok, err := s.SelectedForBorrow()
	require.NoError(t, err)
	assert.False(t, ok)

	cat := catalog.ID("4")
	book := catalog.Book{ID: "9", Title: "Emma", Availability: true, CategoryID: &cat}
	require.NoError(t, s.SelectForBorrow(book))

	got, ok, err := s.SelectedForBorrow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, book, got)

	require.NoError(t, s.ClearBorrowSelection())
	_, ok, err = s.SelectedForBorrow()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyBorrowNow, "{broken"))
	_, ok, err = s.SelectedForBorrow()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_BorrowedBooks(t *testing.T) {
	store := newStore(t)
	s := New(store, nil, quietLogger())

	books, err := s.BorrowedBooks()
	require.NoError(t, err)
	assert.Empty(t, books)

	require.NoError(t, s.AddBorrowedBook(catalog.Book{ID: "1", Title: "Dune"}))
	require.NoError(t, s.AddBorrowedBook(catalog.Book{ID: "2", Title: "Emma"}))
	require.NoError(t, s.AddBorrowedBook(catalog.Book{ID: "1", Title: "Dune again"}))

	books, err = s.BorrowedBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Emma", books[1].Title)

	require.NoError(t, s.RemoveBorrowedBook("1"))
	books, err = s.BorrowedBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, catalog.ID("2"), books[0].ID)

	require.NoError(t, s.RemoveBorrowedBook("2"))
	_, ok, err := store.Get(KeyBorrowed)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyBorrowed, "[broken"))
	books, err = s.BorrowedBooks()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSession_ActiveCategory(t *testing.T) {
	store := newStore(t)
	s := New(store, nil, quietLogger())

	_, ok, err := s.ActiveCategory()
	require.NoError(t, err)
	assert.False(t, ok)

	id := int64(6)
	require.NoError(t, s.SetActiveCategory(&id))
	got, ok, err := s.ActiveCategory()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(6), got)

	require.NoError(t, s.SetActiveCategory(nil))
	_, ok, err = s.ActiveCategory()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyCategory, "six"))
	_, ok, err = s.ActiveCategory()
	require.NoError(t, err)
	assert.False(t, ok)
}
