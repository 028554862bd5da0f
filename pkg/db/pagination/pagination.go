package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidPageToken = errors.New("invalid page token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=25"`
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 250
)

// Limit clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Cursor marks a position in a (created_at desc, id desc) ordered listing.
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(cursor Cursor) string {
	b, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// BuildPageInfo trims an over-fetched result set (limit+1 rows) and returns
// the page plus its continuation token.
func BuildPageInfo[T any](rows []*T, limit int, cursorOf func(*T) Cursor) ([]*T, *PageInfo) {
	if len(rows) <= limit {
		return rows, &PageInfo{HasMore: false}
	}
	rows = rows[:limit]
	last := rows[len(rows)-1]
	return rows, &PageInfo{
		HasMore:       true,
		NextPageToken: EncodeCursor(cursorOf(last)),
	}
}
