package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

const (
	booksEndpoint          = "/books/"
	categoriesEndpoint     = "/categories/books/category"
	allCategoriesEndpoint  = "/categories/books/category/all"
	publicSettingsEndpoint = "/settings/public"
	borrowEndpoint         = "/borrow/borrow/"
	loginEndpoint          = "/auth/login"
	donationEndpoint       = "/donation/"

	defaultTimeout = 30 * time.Second
)

// TokenSource returns the bearer token for the next request, or "" for none
type TokenSource func() string

// Client is a client for the library REST API
type Client struct {
	baseURL string
	token   TokenSource
	client  *http.Client
	logger  *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTokenSource attaches a bearer token to every request
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the logger used by the client
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.Component("library_client")
		}
	}
}

// NewClient creates a new library API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.Get().Component("library_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBooks fetches the public book list.
// A body that is not a JSON array yields an empty list.
func (c *Client) GetBooks(ctx context.Context) ([]models.RawBook, error) {
	body, err := c.do(ctx, http.MethodGet, booksEndpoint, nil, "")
	if err != nil {
		return nil, err
	}

	if !isJSONArray(body) {
		c.logger.Warn("Book list is not an array, treating as empty", map[string]interface{}{
			"endpoint": booksEndpoint,
		})
		return []models.RawBook{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var books []models.RawBook
	if err := dec.Decode(&books); err != nil {
		c.logger.Error("Failed to decode response", map[string]interface{}{
			"endpoint": booksEndpoint,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("Successfully fetched books", map[string]interface{}{
		"count": len(books),
	})
	return books, nil
}

// GetCategories fetches all book categories
func (c *Client) GetCategories(ctx context.Context) ([]models.Category, error) {
	body, err := c.do(ctx, http.MethodGet, allCategoriesEndpoint, nil, "")
	if err != nil {
		return nil, err
	}

	if !isJSONArray(body) {
		return []models.Category{}, nil
	}

	var categories []models.Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("Successfully fetched categories", map[string]interface{}{
		"count": len(categories),
	})
	return categories, nil
}

type categoryPayload struct {
	Title string `json:"category_title"`
}

// CreateCategory creates a category and returns it as stored by the backend
func (c *Client) CreateCategory(ctx context.Context, title string) (*models.Category, error) {
	var created models.Category
	if err := c.sendJSON(ctx, http.MethodPost, categoriesEndpoint, categoryPayload{Title: title}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCategory renames a category
func (c *Client) UpdateCategory(ctx context.Context, id int64, title string) (*models.Category, error) {
	endpoint := fmt.Sprintf("%s/%d", categoriesEndpoint, id)

	var updated models.Category
	if err := c.sendJSON(ctx, http.MethodPatch, endpoint, categoryPayload{Title: title}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory removes a category
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/%d", categoriesEndpoint, id)
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, "")
	return err
}

// GetPublicSettings fetches the public library settings.
// The backend has answered with both an object and a one element array.
func (c *Client) GetPublicSettings(ctx context.Context) (*models.PublicSettings, error) {
	body, err := c.do(ctx, http.MethodGet, publicSettingsEndpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var settings models.PublicSettings
	if isJSONArray(body) {
		var list []models.PublicSettings
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(list) > 0 {
			settings = list[0]
		}
		return &settings, nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return &settings, nil
	}
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &settings, nil
}

// Borrow places a borrow request for a book
func (c *Client) Borrow(ctx context.Context, bookID int64) (*models.BorrowReceipt, error) {
	payload := struct {
		BookID int64 `json:"book_id"`
	}{BookID: bookID}

	body, err := c.doJSON(ctx, http.MethodPost, borrowEndpoint, payload)
	if err != nil {
		return nil, err
	}
	if isEmptyBody(body) {
		return nil, fmt.Errorf("borrow book %d: %w", bookID, ErrEmptyResponse)
	}

	var receipt models.BorrowReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if receipt.BookID == 0 {
		receipt.BookID = bookID
	}
	return &receipt, nil
}

// Login exchanges credentials for an access token
func (c *Client) Login(ctx context.Context, userName, password string) (*models.LoginResponse, error) {
	payload := struct {
		UserName string `json:"user_name"`
		Password string `json:"password"`
	}{UserName: userName, Password: password}

	var resp models.LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, loginEndpoint, payload, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: %w", ErrEmptyResponse)
	}
	return &resp, nil
}

// sendJSON posts payload as JSON and decodes the answer into out
func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	body, err := c.doJSON(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	if out == nil || isEmptyBody(body) {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("Failed to decode response", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, method, endpoint, bytes.NewReader(data), "application/json")
}

// do performs one request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	requestID := uuid.NewString()
	log := logger.FromContextOr(ctx, "library_client", c.logger).WithFields(map[string]interface{}{
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
	})

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		log.Error("Failed to create request", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("Request failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("Unexpected status code", map[string]interface{}{
			"status":   resp.StatusCode,
			"response": truncate(string(respBody), 500),
		})
		return nil, newAPIError(method, endpoint, resp.StatusCode, respBody)
	}

	log.Debug("Request completed", map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
		"bytes":    len(respBody),
	})
	return respBody, nil
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isEmptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
