package dto_test

import (
	"math"
	"testing"

	"gen-gallery/internal/dto"

	"github.com/stretchr/testify/assert"
)

func TestPaginationQuery_Normalize(t *testing.T) {
	cases := []struct {
		name    string
		query   dto.PaginationQuery
		offset  int
		page    int
		perPage int
	}{
		{"defaults", dto.PaginationQuery{}, 0, 1, 20},
		{"second page", dto.PaginationQuery{Page: 2, PerPage: 10}, 10, 2, 10},
		{"per page capped", dto.PaginationQuery{Page: 1, PerPage: 1000}, 0, 1, 100},
		{"negative page", dto.PaginationQuery{Page: -5, PerPage: 10}, 0, 1, 10},
		{"huge page", dto.PaginationQuery{Page: math.MaxInt, PerPage: 100}, (dto.MaxPage - 1) * 100, dto.MaxPage, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.query
			offset := q.Normalize(20, 100)
			assert.Equal(t, tc.offset, offset)
			assert.GreaterOrEqual(t, offset, 0)
			assert.Equal(t, tc.page, q.Page)
			assert.Equal(t, tc.perPage, q.PerPage)
		})
	}
}
