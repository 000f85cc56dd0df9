package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLines(n, width int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d. %s\n", i+1, strings.Repeat("x", width))
	}
	return lines
}

func TestPaginateLines(t *testing.T) {
	t.Run("page sizes sum to the list length", func(t *testing.T) {
		lines := testLines(137, 40)
		pg := paginateLines(lines, 1000, 0)
		require.Greater(t, pg.Capacity, 0)

		wantPages := (pg.Total + pg.Capacity - 1) / pg.Capacity
		assert.Equal(t, wantPages, pg.Pages)

		covered := 0
		for i := 0; i < pg.Pages; i++ {
			p := paginateLines(lines, 1000, i)
			covered += p.End - p.Start
		}
		assert.Equal(t, len(lines), covered)
	})

	t.Run("requested page is clamped into range", func(t *testing.T) {
		lines := testLines(10, 40)
		pg := paginateLines(lines, 100, 99)
		assert.Equal(t, pg.Pages-1, pg.Index)

		pg = paginateLines(lines, 100, -3)
		assert.Equal(t, 0, pg.Index)
	})

	t.Run("oversized single entry still fills a page", func(t *testing.T) {
		lines := testLines(3, 500)
		pg := paginateLines(lines, 100, 0)
		assert.Equal(t, 1, pg.Capacity)
		assert.Equal(t, 3, pg.Pages)
		assert.Equal(t, 0, pg.Start)
		assert.Equal(t, 1, pg.End)
	})

	t.Run("everything fits on one page", func(t *testing.T) {
		lines := testLines(5, 10)
		pg := paginateLines(lines, 1000, 0)
		assert.Equal(t, 1, pg.Pages)
		assert.Equal(t, 0, pg.Start)
		assert.Equal(t, 5, pg.End)
	})

	t.Run("empty list", func(t *testing.T) {
		pg := paginateLines(nil, 1000, 2)
		assert.Zero(t, pg.Total)
		assert.Zero(t, pg.Pages)
	})
}
