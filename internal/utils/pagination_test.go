package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationBounds(t *testing.T) {
	p := Pagination{Page: 2, Limit: 3, Offset: 3}

	start, end := p.Bounds(10)
	assert.Equal(t, 3, start)
	assert.Equal(t, 6, end)

	start, end = p.Bounds(4)
	assert.Equal(t, 3, start)
	assert.Equal(t, 4, end)

	start, end = p.Bounds(2)
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, end)
}
