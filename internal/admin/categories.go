// Package admin holds the category management used by library staff.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/config"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

// ErrNoSuchCategory is returned for an index outside the cached list
var ErrNoSuchCategory = errors.New("no such category")

// ValidationError rejects user input before anything is sent
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Client is the part of the library API category management needs
type Client interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, title string) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, title string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// Manager keeps an ordered local copy of the categories and mirrors every
// successful change into it.
type Manager struct {
	mu         sync.RWMutex
	client     Client
	categories []models.Category
	pageSize   int
	logger     *logger.Logger
}

// NewManager creates a category manager
func NewManager(client Client, pageSize int, log *logger.Logger) *Manager {
	if pageSize <= 0 {
		pageSize = config.DefaultAdminPageSize
	}
	if log == nil {
		log = logger.Get()
	}
	return &Manager{
		client:     client,
		categories: []models.Category{},
		pageSize:   pageSize,
		logger:     log.Component("category_admin"),
	}
}

// Load replaces the local list with the backend's
func (m *Manager) Load(ctx context.Context) error {
	categories, err := m.client.GetCategories(ctx)
	if err != nil {
		m.logger.Error("Failed to load categories", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}

	m.mu.Lock()
	m.categories = categories
	m.mu.Unlock()
	return nil
}

// Categories returns a copy of the local list
func (m *Manager) Categories() []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Category{}, m.categories...)
}

// IndexOf returns the position of the category with id
func (m *Manager) IndexOf(id int64) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, c := range m.categories {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Search returns categories whose title contains query, ignoring case.
// An empty query matches everything.
func (m *Manager) Search(query string) []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		if q == "" || strings.Contains(strings.ToLower(c.Title), q) {
			out = append(out, c)
		}
	}
	return out
}

// Page returns one table page of list
func (m *Manager) Page(list []models.Category, page int) catalog.Page[models.Category] {
	return catalog.Paginate(list, page, m.pageSize)
}

// Create adds a category
func (m *Manager) Create(ctx context.Context, title string) (models.Category, error) {
	title, err := validateTitle(title)
	if err != nil {
		return models.Category{}, err
	}

	created, err := m.client.CreateCategory(ctx, title)
	if err != nil {
		m.logger.Error("Failed to create category", map[string]interface{}{
			"title": title,
			"error": err.Error(),
		})
		return models.Category{}, fmt.Errorf("failed to create category: %w", err)
	}

	cat := models.Category{Title: title}
	if created != nil {
		cat.ID = created.ID
		if created.Title != "" {
			cat.Title = created.Title
		}
	}

	m.mu.Lock()
	m.categories = append(m.categories, cat)
	m.mu.Unlock()

	m.logger.Info("Category created", map[string]interface{}{
		"category_id": cat.ID,
		"title":       cat.Title,
	})
	return cat, nil
}

// Rename changes the title of the category at index
func (m *Manager) Rename(ctx context.Context, index int, title string) (models.Category, error) {
	title, err := validateTitle(title)
	if err != nil {
		return models.Category{}, err
	}
	current, err := m.at(index)
	if err != nil {
		return models.Category{}, err
	}

	updated, err := m.client.UpdateCategory(ctx, current.ID, title)
	if err != nil {
		m.logger.Error("Failed to rename category", map[string]interface{}{
			"category_id": current.ID,
			"error":       err.Error(),
		})
		return models.Category{}, fmt.Errorf("failed to rename category: %w", err)
	}

	renamed := models.Category{ID: current.ID, Title: title}
	if updated != nil && updated.Title != "" {
		renamed.Title = updated.Title
	}

	m.mu.Lock()
	if i := m.indexLocked(current.ID, index); i >= 0 {
		m.categories[i] = renamed
	}
	m.mu.Unlock()
	return renamed, nil
}

// Delete removes the category at index
func (m *Manager) Delete(ctx context.Context, index int) (models.Category, error) {
	current, err := m.at(index)
	if err != nil {
		return models.Category{}, err
	}

	if err := m.client.DeleteCategory(ctx, current.ID); err != nil {
		m.logger.Error("Failed to delete category", map[string]interface{}{
			"category_id": current.ID,
			"error":       err.Error(),
		})
		return models.Category{}, fmt.Errorf("failed to delete category: %w", err)
	}

	m.mu.Lock()
	if i := m.indexLocked(current.ID, index); i >= 0 {
		m.categories = append(m.categories[:i:i], m.categories[i+1:]...)
	}
	m.mu.Unlock()

	m.logger.Info("Category deleted", map[string]interface{}{
		"category_id": current.ID,
	})
	return current, nil
}

func (m *Manager) at(index int) (models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.categories) {
		return models.Category{}, fmt.Errorf("%w at index %d", ErrNoSuchCategory, index)
	}
	return m.categories[index], nil
}

// indexLocked finds the category again after the network call, preferring
// the original position.
func (m *Manager) indexLocked(id int64, hint int) int {
	if hint >= 0 && hint < len(m.categories) && m.categories[hint].ID == id {
		return hint
	}
	for i, c := range m.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "category_title", Msg: "Title is required"}
	}
	return title, nil
}
