package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawBook is a book record exactly as the backend returns it.
// Field names differ between endpoints and backend versions, so the record is
// kept as a loose map and only interpreted by catalog.Normalize.
type RawBook map[string]interface{}

// Category is a book category owned by the backend
type Category struct {
	ID    int64  `json:"category_id"`
	Title string `json:"category_title"`
}

// UnmarshalJSON accepts both the category_* and the plain id/title spellings
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw struct {
		CategoryID    json.RawMessage `json:"category_id"`
		ID            json.RawMessage `json:"id"`
		CategoryTitle *string         `json:"category_title"`
		Title         *string         `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idField := raw.CategoryID
	if isNull(idField) {
		idField = raw.ID
	}
	if !isNull(idField) {
		id, err := parseID(idField)
		if err != nil {
			return fmt.Errorf("invalid category id: %w", err)
		}
		c.ID = id
	}

	switch {
	case raw.CategoryTitle != nil:
		c.Title = *raw.CategoryTitle
	case raw.Title != nil:
		c.Title = *raw.Title
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

// parseID reads an id sent either as a JSON number or as a numeric string
func parseID(data json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.Int64()
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// User is the account object returned by the login endpoint.
// Only Name is guaranteed; the rest is kept verbatim.
type User struct {
	Name  string                 `json:"name"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// LoginResponse is the body of POST /auth/login
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	User        json.RawMessage `json:"user,omitempty"`
}

// PublicSettings is the public subset of the library settings
type PublicSettings struct {
	BorrowDayLimit *int `json:"borrow_day_limit"`
}

// BorrowReceipt is the confirmation returned by the borrow endpoint
type BorrowReceipt struct {
	ID     int64  `json:"id,omitempty"`
	BookID int64  `json:"book_id"`
	Status string `json:"status,omitempty"`
}

// DonationReceipt is the stored donation returned by PUT /donation/
type DonationReceipt struct {
	ID        int64  `json:"d_book_id"`
	BookTitle string `json:"book_title"`
	Approval  string `json:"book_approve"`
}
