package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, DefaultPageSize, Pagination{PageSize: -1}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10000}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{ID: "12345", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	assert.Equal(t, cursor.ID, decoded.ID)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("%%%not-base64%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestBuildPageInfo(t *testing.T) {
	type row struct{ id string }
	cursorOf := func(r *row) Cursor { return Cursor{ID: r.id} }

	rows := []*row{{"a"}, {"b"}, {"c"}}
	page, info := BuildPageInfo(rows, 2, cursorOf)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	decoded, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "b", decoded.ID)

	page, info = BuildPageInfo(rows[:2], 2, cursorOf)
	require.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
