package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePagination(t *testing.T) {
	cases := []struct {
		name        string
		page, limit int
		total       int64
		want        PaginationMeta
	}{
		{"exact pages", 1, 10, 30, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 30, TotalPages: 3}},
		{"partial last page", 2, 10, 31, PaginationMeta{CurrentPage: 2, PerPage: 10, Total: 31, TotalPages: 4}},
		{"clamped values", 0, 500, 5, PaginationMeta{CurrentPage: 1, PerPage: 100, Total: 5, TotalPages: 1}},
		{"empty", 1, 0, 0, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 0, TotalPages: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculatePagination(tc.page, tc.limit, tc.total))
		})
	}
}
