package dto

import (
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// Page size bounds for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor rejects a cursor that EncodeCursor did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds the limit and cursor query parameters.
type PaginationRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// GetLimit clamps Limit to [1, MaxLimit], using DefaultLimit when unset.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Offset is the index of the first item on the requested page.
func (p *PaginationRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	return DecodeCursor(p.Cursor)
}

// PaginatedResponse is one page of a list endpoint. NextCursor is empty on
// the last page.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// Paginate returns items[offset:offset+limit]. Past the end it returns an
// empty page rather than an error, so a stale cursor is harmless.
func Paginate[T any](items []T, offset, limit int) *PaginatedResponse[T] {
	page := &PaginatedResponse[T]{Items: []T{}, Total: len(items)}
	if offset >= len(items) {
		return page
	}

	end := min(offset+limit, len(items))
	page.Items = items[offset:end]

	if end < len(items) {
		page.HasMore = true
		page.NextCursor = EncodeCursor(end)
	}

	return page
}

// EncodeCursor wraps offset as {"o":N} in unpadded URL-safe base64.
func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(`{"o":` + strconv.Itoa(offset) + `}`))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(encoded string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || !gjson.ValidBytes(raw) {
		return 0, ErrInvalidCursor
	}

	o := gjson.GetBytes(raw, "o")
	if o.Type != gjson.Number || o.Num < 0 || o.Num != float64(o.Int()) {
		return 0, ErrInvalidCursor
	}

	return int(o.Int()), nil
}
