package donation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/lms-client/internal/api/library"
	"github.com/shelfdesk/lms-client/internal/logger"
)

type fakeUploader struct {
	got      *library.DonationRequest
	contents map[string]string
	resp     json.RawMessage
	err      error
}

func (f *fakeUploader) Donate(ctx context.Context, d library.DonationRequest) (json.RawMessage, error) {
	f.got = &d
	f.contents = map[string]string{}
	for field, att := range map[string]*library.Attachment{"photo": d.Photo, "pdf": d.PDF, "audio": d.Audio} {
		if att == nil {
			continue
		}
		data, err := io.ReadAll(att.Content)
		if err != nil {
			return nil, err
		}
		f.contents[field] = att.Name + ":" + string(data)
	}
	return f.resp, f.err
}

func quietLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.New(io.Discard)}
}

func validForm() Form {
	return Form{
		Title:         "Dune",
		CategoryID:    3,
		CategoryTitle: "Science Fiction",
		Author:        "Frank Herbert",
		BSMail:        "ada@example.com",
		BSID:          "S-100",
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Form)
		field  string
	}{
		{name: "valid", modify: func(f *Form) {}},
		{name: "blank title", modify: func(f *Form) { f.Title = "  " }, field: "book_title"},
		{name: "missing author", modify: func(f *Form) { f.Author = "" }, field: "book_author"},
		{name: "missing category", modify: func(f *Form) { f.CategoryID = 0 }, field: "category_id"},
		{name: "missing mail", modify: func(f *Form) { f.BSMail = "" }, field: "BS_mail"},
		{name: "bad mail", modify: func(f *Form) { f.BSMail = "not-an-address" }, field: "BS_mail"},
		{name: "missing id", modify: func(f *Form) { f.BSID = "" }, field: "BS_ID"},
		{name: "negative count", modify: func(f *Form) { f.Count = -2 }, field: "book_count"},
		{name: "missing cover file", modify: func(f *Form) { f.CoverPath = "/does/not/exist.png" }, field: "book_photo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.modify(&form)
			err := form.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestForm_ValidateDefaultsCount(t *testing.T) {
	form := validForm()
	form.Title = "  Dune  "
	require.NoError(t, form.Validate())
	assert.Equal(t, 1, form.Count)
	assert.Equal(t, "Dune", form.Title)
}

func TestService_Submit(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	require.NoError(t, os.WriteFile(cover, []byte("png-bytes"), 0644))

	uploader := &fakeUploader{resp: json.RawMessage(`{"d_book_id": 8, "book_title": "Dune", "book_approve": "pending"}`)}
	s := NewService(uploader, quietLogger())

	form := validForm()
	form.Count = 3
	form.Detail = "First edition"
	form.CoverPath = cover

	result, err := s.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.Receipt.ID)
	assert.Equal(t, "pending", result.Receipt.Approval)

	require.NotNil(t, uploader.got)
	assert.Equal(t, "Dune", uploader.got.BookTitle)
	assert.Equal(t, int64(3), uploader.got.CategoryID)
	assert.Equal(t, 3, uploader.got.BookCount)
	assert.Equal(t, "First edition", uploader.got.BookDetail)
	assert.Nil(t, uploader.got.PDF)
	assert.Equal(t, map[string]string{"photo": "cover.png:png-bytes"}, uploader.contents)
}

func TestService_SubmitInvalidFormSendsNothing(t *testing.T) {
	uploader := &fakeUploader{}
	s := NewService(uploader, quietLogger())

	form := validForm()
	form.Author = ""
	_, err := s.Submit(context.Background(), form)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Nil(t, uploader.got)
}

func TestService_SubmitUploadError(t *testing.T) {
	uploader := &fakeUploader{err: &library.APIError{StatusCode: 401, Detail: "Not authenticated"}}
	s := NewService(uploader, quietLogger())

	_, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, library.ErrUnauthorized)
}

func TestService_SubmitNonReceiptResponse(t *testing.T) {
	uploader := &fakeUploader{resp: json.RawMessage(`"ok"`)}
	s := NewService(uploader, quietLogger())

	result, err := s.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"ok"`), result.Raw)
	assert.Zero(t, result.Receipt.ID)
}
