package internal

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params := parseListParams(httptest.NewRequest("GET", "/api/v1/vendors", nil))
		assert.Equal(t, 1, params.page)
		assert.Equal(t, 20, params.limit)
		assert.Equal(t, 0, params.offset)
	})

	t.Run("page and limit", func(t *testing.T) {
		params := parseListParams(httptest.NewRequest("GET", "/api/v1/vendors?page=3&limit=10", nil))
		assert.Equal(t, 3, params.page)
		assert.Equal(t, 10, params.limit)
		assert.Equal(t, 20, params.offset)
	})

	t.Run("limit capped at 100", func(t *testing.T) {
		params := parseListParams(httptest.NewRequest("GET", "/api/v1/vendors?limit=5000", nil))
		assert.Equal(t, 100, params.limit)
	})

	t.Run("garbage ignored", func(t *testing.T) {
		params := parseListParams(httptest.NewRequest("GET", "/api/v1/vendors?page=-2&limit=x", nil))
		assert.Equal(t, 1, params.page)
		assert.Equal(t, 20, params.limit)
	})
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{
		"name":       "company_name",
		"created_at": "created_at",
	}

	tests := []struct {
		name string
		sort string
		want string
	}{
		{"empty falls back", "", " ORDER BY company_name"},
		{"single ascending", "name", " ORDER BY company_name ASC"},
		{"descending prefix", "-created_at", " ORDER BY created_at DESC"},
		{"multiple keys", "name,-created_at", " ORDER BY company_name ASC, created_at DESC"},
		{"unknown key falls back", "drop_table", " ORDER BY company_name"},
		{"unknown key skipped among valid", "drop_table,name", " ORDER BY company_name ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildOrderBy(tt.sort, allowed, "company_name"))
		})
	}
}

func TestNullIfEmpty(t *testing.T) {
	phone := "404-555-0100"
	blank := "   "
	empty := ""

	assert.Nil(t, nullIfEmpty(nil))
	assert.Nil(t, nullIfEmpty(&empty))
	assert.Nil(t, nullIfEmpty(&blank))
	assert.Equal(t, "404-555-0100", nullIfEmpty(&phone))
}
