package donation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelfdesk/lms-client/internal/api/library"
	"github.com/shelfdesk/lms-client/internal/logger"
	"github.com/shelfdesk/lms-client/internal/models"
)

// ValidationError rejects a form before it is uploaded
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Uploader sends the multipart donation request
type Uploader interface {
	Donate(ctx context.Context, donation library.DonationRequest) (json.RawMessage, error)
}

// Form is a book offered by a donor
type Form struct {
	Title         string
	CategoryID    int64
	CategoryTitle string
	Author        string
	BSMail        string
	BSID          string
	Detail        string
	Count         int

	CoverPath string
	PDFPath   string
	AudioPath string
}

// Validate checks the form locally. A zero Count is raised to 1.
func (f *Form) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.BSMail = strings.TrimSpace(f.BSMail)
	f.BSID = strings.TrimSpace(f.BSID)
	f.CategoryTitle = strings.TrimSpace(f.CategoryTitle)

	switch {
	case f.Title == "":
		return &ValidationError{Field: "book_title", Msg: "Title is required"}
	case f.Author == "":
		return &ValidationError{Field: "book_author", Msg: "Author is required"}
	case f.CategoryID <= 0:
		return &ValidationError{Field: "category_id", Msg: "Category is required"}
	case f.BSMail == "":
		return &ValidationError{Field: "BS_mail", Msg: "Email is required"}
	case f.BSID == "":
		return &ValidationError{Field: "BS_ID", Msg: "ID number is required"}
	case f.Count < 0:
		return &ValidationError{Field: "book_count", Msg: "Quantity cannot be negative"}
	}

	if _, err := mail.ParseAddress(f.BSMail); err != nil {
		return &ValidationError{Field: "BS_mail", Msg: "Email is not valid"}
	}
	if f.Count == 0 {
		f.Count = 1
	}

	files := []struct{ field, path string }{
		{"book_photo", f.CoverPath},
		{"book_pdf", f.PDFPath},
		{"book_audio", f.AudioPath},
	}
	for _, file := range files {
		if file.path == "" {
			continue
		}
		info, err := os.Stat(file.path)
		if err != nil || info.IsDir() {
			return &ValidationError{Field: file.field, Msg: fmt.Sprintf("cannot read file %s", file.path)}
		}
	}
	return nil
}

// Result is the backend's answer to a donation
type Result struct {
	Receipt models.DonationReceipt
	Raw     json.RawMessage
}

// Service submits donations
type Service struct {
	uploader Uploader
	logger   *logger.Logger
}

// NewService creates a donation service
func NewService(uploader Uploader, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{uploader: uploader, logger: log.Component("donation")}
}

// Submit validates the form, attaches its files and uploads it
func (s *Service) Submit(ctx context.Context, form Form) (*Result, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	req := library.DonationRequest{
		BookTitle:     form.Title,
		CategoryTitle: form.CategoryTitle,
		CategoryID:    form.CategoryID,
		BookAuthor:    form.Author,
		BSMail:        form.BSMail,
		BSID:          form.BSID,
		BookDetail:    form.Detail,
		BookCount:     form.Count,
	}

	var opened []*os.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	attach := func(path string) (*library.Attachment, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		opened = append(opened, f)
		return &library.Attachment{Name: filepath.Base(path), Content: f}, nil
	}

	var err error
	if req.Photo, err = attach(form.CoverPath); err != nil {
		return nil, err
	}
	if req.PDF, err = attach(form.PDFPath); err != nil {
		return nil, err
	}
	if req.Audio, err = attach(form.AudioPath); err != nil {
		return nil, err
	}

	raw, err := s.uploader.Donate(ctx, req)
	if err != nil {
		s.logger.Error("Failed to upload donation", map[string]interface{}{
			"title": form.Title,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to upload donation: %w", err)
	}

	result := &Result{Raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result.Receipt); err != nil {
			s.logger.Debug("Donation response has no receipt", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return result, nil
}
