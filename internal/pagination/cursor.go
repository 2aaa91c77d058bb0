// Package pagination implements keyset cursors for newest-first listings.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the (created_at, id) key of the last row of a page
type Cursor struct {
	LastID    string    `json:"id"`
	Timestamp time.Time `json:"ts"`
}

// PageResult is the wire shape of one page
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// EncodeCursor returns an opaque, URL-safe token for the row key, or "" when
// lastID is empty
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw, _ := json.Marshal(Cursor{LastID: lastID, Timestamp: timestamp.UTC()})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token from EncodeCursor. An empty token means the
// first page and yields nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.LastID == "" || c.Timestamp.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// ClampLimit falls back to DefaultLimit for values outside 1..MaxLimit
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// Trim cuts a result fetched with limit+1 rows down to limit and returns the
// cursor of the last kept row when more rows exist
func Trim[T any](items []T, limit int, key func(T) (string, time.Time)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	if limit == 0 {
		return items, "", true
	}
	id, ts := key(items[len(items)-1])
	return items, EncodeCursor(id, ts), true
}
