// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/booklore/booklore/pkg/pagination"
)

/*
TestPagination_FromRequest verifies query parsing and clamping rules.
*/
func TestPagination_FromRequest(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "/books", pagination.DefaultPage, pagination.DefaultLimit},
		{"explicit", "/books?page=3&limit=50", 3, 50},
		{"negative_page", "/books?page=-1", pagination.DefaultPage, pagination.DefaultLimit},
		{"limit_over_max", "/books?limit=5000", pagination.DefaultPage, pagination.DefaultLimit},
		{"garbage_input", "/books?page=abc&limit=xyz", pagination.DefaultPage, pagination.DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", tt.url, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

/*
TestPagination_Offset checks the SQL offset derivation.
*/
func TestPagination_Offset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 20, pagination.Params{Page: 2, Limit: 20}.Offset())
	assert.Equal(t, 90, pagination.Params{Page: 10, Limit: 10}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 20}.Offset())
}

/*
TestPagination_NewMeta checks total page calculation including partial pages.
*/
func TestPagination_NewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 20, 45)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 45, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	empty := pagination.NewMeta(1, 0, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
