package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches mimetype's default read limit
const sniffLen = 3072

// Attachment is one uploaded file
type Attachment struct {
	Name    string
	Content io.Reader
}

// DonationRequest is the multipart body of PUT /donation/
type DonationRequest struct {
	BookTitle     string
	CategoryTitle string
	CategoryID    int64
	BookAuthor    string
	BSMail        string
	BSID          string
	BookDetail    string
	BookCount     int

	Photo *Attachment
	PDF   *Attachment
	Audio *Attachment
}

// Donate uploads a donated book with its optional cover, pdf and audio files
func (c *Client) Donate(ctx context.Context, donation DonationRequest) (json.RawMessage, error) {
	body, contentType, err := encodeDonation(donation)
	if err != nil {
		c.logger.Error("Failed to encode donation", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPut, donationEndpoint, body, contentType)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Donation submitted", map[string]interface{}{
		"title":       donation.BookTitle,
		"category_id": donation.CategoryID,
	})
	if isEmptyBody(resp) {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(resp), nil
}

func encodeDonation(d DonationRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct{ name, value string }{
		{"book_title", d.BookTitle},
		{"category_title", d.CategoryTitle},
		{"category_id", strconv.FormatInt(d.CategoryID, 10)},
		{"book_author", d.BookAuthor},
		{"BS_mail", d.BSMail},
		{"BS_ID", d.BSID},
		{"book_detail", d.BookDetail},
		{"book_count", strconv.Itoa(d.BookCount)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	files := []struct {
		field string
		att   *Attachment
	}{
		{"book_photo", d.Photo},
		{"book_pdf", d.PDF},
		{"book_audio", d.Audio},
	}
	for _, f := range files {
		if f.att == nil || f.att.Content == nil {
			continue
		}
		if err := writeFilePart(w, f.field, f.att); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// writeFilePart sniffs the content type from the leading bytes and streams the rest
func writeFilePart(w *multipart.Writer, field string, att *Attachment) error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(att.Content, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read %s: %w", field, err)
	}
	head = head[:n]

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, att.Name))
	header.Set("Content-Type", mimetype.Detect(head).String())

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create part %s: %w", field, err)
	}
	if _, err := io.Copy(part, io.MultiReader(bytes.NewReader(head), att.Content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", field, err)
	}
	return nil
}
