package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationDefaults(t *testing.T) {
	var p Pagination
	assert.Equal(t, defaultPageSize, p.Limit())
	assert.Equal(t, 0, p.Offset())
}

func TestPaginationClampsPageSize(t *testing.T) {
	p := Pagination{Page: 1, PageSize: 500}
	assert.Equal(t, maxPageSize, p.Limit())

	p = Pagination{Page: 1, PageSize: -3}
	assert.Equal(t, defaultPageSize, p.Limit())
}

func TestPaginationOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())

	// Page 0 and page 1 are the same page.
	p = Pagination{Page: 0, PageSize: 10}
	assert.Equal(t, 0, p.Offset())
}
