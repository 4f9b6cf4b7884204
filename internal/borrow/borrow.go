package borrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfdesk/lms-client/internal/catalog"
	"github.com/shelfdesk/lms-client/internal/config"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

// DateLayout is the yyyy-mm-dd layout used on the borrow form
const DateLayout = "2006-01-02"

var (
	// ErrNothingToBorrow means no book was chosen explicitly or remembered
	ErrNothingToBorrow = errors.New("no book selected to borrow")
	// ErrInvalidBookID means the chosen book has no numeric id to send
	ErrInvalidBookID = errors.New("book has no numeric id")
)

// Client is the part of the library API the borrow flow needs
type Client interface {
	GetPublicSettings(ctx context.Context) (*models.PublicSettings, error)
	Borrow(ctx context.Context, bookID int64) (*models.BorrowReceipt, error)
}

// Selection is where the "borrow now" choice and the borrow list are remembered
type Selection interface {
	SelectedForBorrow() (catalog.Book, bool, error)
	ClearBorrowSelection() error
	BorrowedBooks() ([]catalog.Book, error)
	RemoveBorrowedBook(id catalog.ID) error
}

// Form is one filled-in borrow request
type Form struct {
	Book       catalog.Book
	BookID     int64
	BorrowDate string
	ReturnDate string
	Days       int
}

// Plan fills in the form for book, borrowed on now for limit days
func Plan(book catalog.Book, limit int, now time.Time) (Form, error) {
	id, ok := book.ID.Int64()
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrInvalidBookID, book.ID)
	}
	today := now.UTC()
	return Form{
		Book:       book,
		BookID:     id,
		BorrowDate: today.Format(DateLayout),
		ReturnDate: today.AddDate(0, 0, limit).Format(DateLayout),
		Days:       limit,
	}, nil
}

// Service drives the borrow form
type Service struct {
	client       Client
	selection    Selection
	defaultLimit int
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a borrow service; a non-positive defaultLimit means 14 days
func NewService(client Client, selection Selection, defaultLimit int, log *logger.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = config.DefaultBorrowDayLimit
	}
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		client:       client,
		selection:    selection,
		defaultLimit: defaultLimit,
		logger:       log.Component("borrow"),
		now:          time.Now,
	}
}

// Chosen resolves the book to borrow. The explicit choice wins, then the
// remembered "borrow now" book, then the head of the borrow list.
func (s *Service) Chosen(explicit *catalog.Book) (catalog.Book, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if s.selection == nil {
		return catalog.Book{}, ErrNothingToBorrow
	}

	book, ok, err := s.selection.SelectedForBorrow()
	if err != nil {
		return catalog.Book{}, fmt.Errorf("failed to read borrow selection: %w", err)
	}
	if ok {
		return book, nil
	}

	list, err := s.selection.BorrowedBooks()
	if err != nil {
		return catalog.Book{}, fmt.Errorf("failed to read borrow list: %w", err)
	}
	if len(list) > 0 {
		return list[0], nil
	}
	return catalog.Book{}, ErrNothingToBorrow
}

// DayLimit reads the borrow day limit from the public settings, falling
// back to the default when the backend is unreachable or silent.
func (s *Service) DayLimit(ctx context.Context) int {
	settings, err := s.client.GetPublicSettings(ctx)
	if err != nil {
		log := logger.FromContextOr(ctx, "borrow", s.logger)
		log.Warn("Failed to load settings, using default borrow limit", map[string]interface{}{
			"error":   err.Error(),
			"default": s.defaultLimit,
		})
		return s.defaultLimit
	}
	if settings == nil || settings.BorrowDayLimit == nil || *settings.BorrowDayLimit <= 0 {
		return s.defaultLimit
	}
	return *settings.BorrowDayLimit
}

// Prepare resolves the chosen book and fills in its form
func (s *Service) Prepare(ctx context.Context, explicit *catalog.Book) ([]Form, error) {
	book, err := s.Chosen(explicit)
	if err != nil {
		return nil, err
	}
	form, err := Plan(book, s.DayLimit(ctx), s.now())
	if err != nil {
		return nil, err
	}
	return []Form{form}, nil
}

// Submit places one borrow request per form, in order. The first failure
// stops the run and is returned; nothing is retried. A fully successful run
// forgets the remembered selection and takes the borrowed books off the
// borrow list.
func (s *Service) Submit(ctx context.Context, forms []Form) ([]*models.BorrowReceipt, error) {
	if len(forms) == 0 {
		return nil, ErrNothingToBorrow
	}

	log := logger.FromContextOr(ctx, "borrow", s.logger)
	receipts := make([]*models.BorrowReceipt, 0, len(forms))
	for _, form := range forms {
		receipt, err := s.client.Borrow(ctx, form.BookID)
		if err != nil {
			log.Error("Borrow request failed", map[string]interface{}{
				"book_id": form.BookID,
				"title":   form.Book.Title,
				"error":   err.Error(),
			})
			return receipts, fmt.Errorf("failed for book %s: %w", form.Book.Title, err)
		}
		receipts = append(receipts, receipt)

		log.Info("Borrow request placed", map[string]interface{}{
			"book_id":     form.BookID,
			"return_date": form.ReturnDate,
		})
	}

	if s.selection != nil {
		if err := s.selection.ClearBorrowSelection(); err != nil {
			log.Warn("Failed to clear borrow selection", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, form := range forms {
			if err := s.selection.RemoveBorrowedBook(form.Book.ID); err != nil {
				log.Warn("Failed to update borrow list", map[string]interface{}{
					"book_id": form.BookID,
					"error":   err.Error(),
				})
			}
		}
	}
	return receipts, nil
}
