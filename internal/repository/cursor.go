// Package repository provides data access layer implementations for the application.
package repository

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor is an opaque keyset position for paginated listings. Created-at
// plus ID breaks ties between rows sharing a timestamp.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uint      `json:"id"`
}

// EncodeCursor serializes a cursor to its wire form.
func EncodeCursor(c Cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a wire-form cursor. Empty input yields a zero cursor,
// meaning "start from the newest row".
func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	if s == "" {
		return c, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, err
	}
	return c, nil
}

// IsZero reports whether the cursor marks the start of a listing.
func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == 0
}
