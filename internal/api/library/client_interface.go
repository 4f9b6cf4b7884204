package library

import (
	"context"
	"encoding/json"

	"github.com/shelfdesk/lms-client/internal/models"
)

// LibraryClientInterface defines the interface for the library API client
type LibraryClientInterface interface {
	GetBooks(ctx context.Context) ([]models.RawBook, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, title string) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, title string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	GetPublicSettings(ctx context.Context) (*models.PublicSettings, error)
	Borrow(ctx context.Context, bookID int64) (*models.BorrowReceipt, error)
	Login(ctx context.Context, userName, password string) (*models.LoginResponse, error)
	Donate(ctx context.Context, donation DonationRequest) (json.RawMessage, error)
}

// Ensure Client implements LibraryClientInterface
var _ LibraryClientInterface = (*Client)(nil)
