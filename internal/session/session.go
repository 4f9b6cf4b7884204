// Package session keeps the signed-in user, the access token and the books
// picked for borrowing across CLI invocations.
package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

// Persisted keys
const (
	KeyAuth      = "lms_auth"
	KeyUser      = "lms_user"
	KeyToken     = "access_token"
	KeyBorrowNow = "borrowNow"
	KeyBorrowed  = "borrowedBooks"
	KeyCategory  = "activeCategory"
)

// KV is the persistence the session writes through to
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// Sealer protects the access token at rest
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Claims are the access token claims the client cares about
type Claims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an expiry that has passed
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Session is the process-wide authentication state
type Session struct {
	mu     sync.RWMutex
	kv     KV
	sealer Sealer
	logger *logger.Logger
	now    func() time.Time

	authenticated bool
	user          *models.User
	token         string
	claims        Claims
}

// New creates a session over kv; sealer may be nil to store the token as is
func New(kv KV, sealer Sealer, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Get()
	}
	return &Session{
		kv:     kv,
		sealer: sealer,
		logger: log.Component("session"),
		now:    time.Now,
	}
}

// Init loads the persisted state. An expired token signs the user out.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth, _, err := s.kv.Get(KeyAuth)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	s.authenticated = auth == "true"

	s.user = nil
	if raw, ok, err := s.kv.Get(KeyUser); err != nil {
		return fmt.Errorf("failed to load session user: %w", err)
	} else if ok && raw != "" {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("Ignoring unreadable session user", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			s.user = &u
		}
	}

	s.token, s.claims = "", Claims{}
	sealed, ok, err := s.kv.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("failed to load access token: %w", err)
	}
	if ok && sealed != "" {
		token, err := s.open(sealed)
		if err != nil {
			s.logger.Warn("Access token unreadable, signing out", map[string]interface{}{
				"error": err.Error(),
			})
			return s.clearLocked()
		}
		s.token = token
		s.claims = parseClaims(token)
	}

	if s.authenticated && s.claims.Expired(s.now()) {
		s.logger.Info("Access token expired, signing out", map[string]interface{}{
			"expired_at": s.claims.ExpiresAt.Format(time.RFC3339),
		})
		return s.clearLocked()
	}
	return nil
}

// Set records a successful login
func (s *Session) Set(user models.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := s.kv.Set(KeyToken, sealed); err != nil {
		return err
	}
	if err := s.kv.Set(KeyUser, string(userJSON)); err != nil {
		return err
	}
	if err := s.kv.Set(KeyAuth, "true"); err != nil {
		return err
	}

	s.authenticated = true
	s.user = &user
	s.token = token
	s.claims = parseClaims(token)

	s.logger.Info("Signed in", map[string]interface{}{
		"user": user.Name,
		"role": s.claims.Role,
	})
	return nil
}

// Clear signs out but keeps the borrow selection
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Session) clearLocked() error {
	s.authenticated = false
	s.user = nil
	s.token = ""
	s.claims = Claims{}

	if err := s.kv.Set(KeyAuth, "false"); err != nil {
		return err
	}
	return s.kv.Delete(KeyUser, KeyToken)
}

// Teardown signs out and removes every persisted key
func (s *Session) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false
	s.user = nil
	s.token = ""
	s.claims = Claims{}

	return s.kv.Delete(KeyAuth, KeyUser, KeyToken, KeyBorrowNow, KeyBorrowed, KeyCategory)
}

// IsAuthenticated reports whether a user is signed in with a live token
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated && !s.claims.Expired(s.now())
}

// User returns the signed-in user, if any
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated || s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token, or "" when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return ""
	}
	return s.token
}

// Claims returns the claims decoded from the current token
func (s *Session) Claims() Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// SelectForBorrow remembers book as the one to borrow next
func (s *Session) SelectForBorrow(book catalog.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	return s.kv.Set(KeyBorrowNow, string(data))
}

// SelectedForBorrow returns the remembered book
func (s *Session) SelectedForBorrow() (catalog.Book, bool, error) {
	raw, ok, err := s.kv.Get(KeyBorrowNow)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return catalog.Book{}, false, err
	}

	var book catalog.Book
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		s.logger.Warn("Discarding unreadable borrow selection", map[string]interface{}{
			"error": err.Error(),
		})
		return catalog.Book{}, false, nil
	}
	return book, true, nil
}

// ClearBorrowSelection forgets the remembered book
func (s *Session) ClearBorrowSelection() error {
	return s.kv.Delete(KeyBorrowNow)
}

// AddBorrowedBook appends book to the borrow list unless a book with the
// same id is already on it
func (s *Session) AddBorrowedBook(book catalog.Book) error {
	books, err := s.BorrowedBooks()
	if err != nil {
		return err
	}
	for _, b := range books {
		if b.ID == book.ID {
			return nil
		}
	}
	return s.saveBorrowed(append(books, book))
}

// BorrowedBooks returns the borrow list in the order books were added
func (s *Session) BorrowedBooks() ([]catalog.Book, error) {
	raw, ok, err := s.kv.Get(KeyBorrowed)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []catalog.Book{}, nil
	}

	var books []catalog.Book
	if err := json.Unmarshal([]byte(raw), &books); err != nil {
		s.logger.Warn("Discarding unreadable borrow list", map[string]interface{}{
			"error": err.Error(),
		})
		return []catalog.Book{}, nil
	}
	if books == nil {
		books = []catalog.Book{}
	}
	return books, nil
}

// RemoveBorrowedBook drops the book with id from the borrow list
func (s *Session) RemoveBorrowedBook(id catalog.ID) error {
	books, err := s.BorrowedBooks()
	if err != nil {
		return err
	}
	kept := books[:0]
	for _, b := range books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return s.kv.Delete(KeyBorrowed)
	}
	return s.saveBorrowed(kept)
}

func (s *Session) saveBorrowed(books []catalog.Book) error {
	data, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("failed to encode borrow list: %w", err)
	}
	return s.kv.Set(KeyBorrowed, string(data))
}

// ActiveCategory returns the category highlighted in the catalog, if any
func (s *Session) ActiveCategory() (int64, bool, error) {
	raw, ok, err := s.kv.Get(KeyCategory)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// SetActiveCategory remembers the highlighted category; nil clears it
func (s *Session) SetActiveCategory(id *int64) error {
	if id == nil {
		return s.kv.Delete(KeyCategory)
	}
	return s.kv.Set(KeyCategory, strconv.FormatInt(*id, 10))
}

func (s *Session) seal(token string) (string, error) {
	if s.sealer == nil {
		return token, nil
	}
	return s.sealer.Encrypt(token)
}

func (s *Session) open(sealed string) (string, error) {
	if s.sealer == nil {
		return sealed, nil
	}
	return s.sealer.Decrypt(sealed)
}

// parseClaims reads claims without verifying the signature; the backend
// verifies it on every request.
func parseClaims(token string) Claims {
	if token == "" {
		return Claims{}
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}
	}

	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if v, ok := mc["user_id"]; ok && v != nil {
		c.UserID = claimString(v)
	} else if sub, err := mc.GetSubject(); err == nil {
		c.UserID = sub
	}
	if v, ok := mc["role"]; ok && v != nil {
		c.Role = claimString(v)
	}
	return c
}

func claimString(v interface{}) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
