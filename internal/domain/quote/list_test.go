package quote

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListParamsDefaults(t *testing.T) {
	p, err := ParseListParams(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, ListParams{Page: 1, Limit: 10, SortBy: "created_at"}, p)
	assert.Equal(t, 0, p.Offset())
}

func TestParseListParams(t *testing.T) {
	p, err := ParseListParams(url.Values{
		"page":      {"3"},
		"limit":     {"500"},
		"sortBy":    {"createdAt"},
		"sortOrder": {"ASC"},
		"status":    {"approved"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, "created_at", p.SortBy)
	assert.True(t, p.Ascending)
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, 200, p.Offset())
}

func TestParseListParamsIgnoresUnknownSort(t *testing.T) {
	p, err := ParseListParams(url.Values{"sortBy": {"id; drop table quotes"}, "status": {"all"}, "page": {"-2"}})
	require.NoError(t, err)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, Status(""), p.Status)
	assert.Equal(t, 1, p.Page)
}

func TestParseListParamsRejectsStatus(t *testing.T) {
	_, err := ParseListParams(url.Values{"status": {"archived"}})
	assert.Error(t, err)
}

func TestNewPagination(t *testing.T) {
	p := ListParams{Page: 2, Limit: 10}
	pg := NewPagination(p, 25)
	assert.Equal(t, Pagination{
		CurrentPage:  2,
		TotalPages:   3,
		TotalItems:   25,
		ItemsPerPage: 10,
		HasNextPage:  true,
		HasPrevPage:  true,
	}, pg)

	empty := NewPagination(ListParams{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
	assert.False(t, empty.HasPrevPage)
}
