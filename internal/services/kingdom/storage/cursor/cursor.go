// Package cursor encodes opaque raid list page tokens.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Direction indicates the pagination direction.
type Direction string

const (
	// DirectionForward pages toward later raids (key > cursor).
	DirectionForward Direction = "fwd"
	// DirectionBackward pages toward earlier raids (key < cursor).
	DirectionBackward Direction = "bwd"
)

// Cursor is the position after the last raid of a page. Raids are keyed by
// (start_at, id) so raids started in the same millisecond still page stably.
type Cursor struct {
	StartAt int64     `json:"start_at"`
	ID      string    `json:"id"`
	Dir     Direction `json:"dir"`
	// FilterHash invalidates the token when the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
	// OrderHash invalidates the token when order_by changes.
	OrderHash string `json:"order_hash,omitempty"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque token produced by Encode.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}

	if c.Dir != DirectionForward && c.Dir != DirectionBackward {
		return Cursor{}, fmt.Errorf("invalid cursor direction: %q", c.Dir)
	}
	if c.ID == "" {
		return Cursor{}, fmt.Errorf("cursor is missing a raid id")
	}

	return c, nil
}

// HashFilter returns a short hash of s, or "" for an empty string.
func HashFilter(s string) string {
	if s == "" {
		return ""
	}
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// Validate checks that the cursor was issued for the same filter and order.
func Validate(c Cursor, filter, orderBy string) error {
	if c.FilterHash != HashFilter(filter) {
		return fmt.Errorf("filter changed since cursor was created")
	}
	if c.OrderHash != HashFilter(orderBy) {
		return fmt.Errorf("order_by changed since cursor was created")
	}
	return nil
}

// NewNextPageCursor creates the cursor for the page after the raid keyed by
// (startAt, id). Descending order pages backward.
func NewNextPageCursor(startAt int64, id string, descending bool, filter, orderBy string) Cursor {
	dir := DirectionForward
	if descending {
		dir = DirectionBackward
	}
	return Cursor{
		StartAt:    startAt,
		ID:         id,
		Dir:        dir,
		FilterHash: HashFilter(filter),
		OrderHash:  HashFilter(orderBy),
	}
}
