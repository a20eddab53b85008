package board

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/jeopardy/trivia"
)

func categories(clues ...int) []trivia.Category {
	out := make([]trivia.Category, 0, len(clues))
	for col, n := range clues {
		category := trivia.Category{Title: fmt.Sprintf("Title %d", col)}
		for row := range n {
			category.Clues = append(category.Clues, trivia.Clue{
				Question: fmt.Sprintf("Q %d/%d", row, col),
				Answer:   fmt.Sprintf("A %d/%d", row, col),
			})
		}
		out = append(out, category)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("Full board", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 5))

		require.NoError(t, err)
		assert.NotEmpty(t, b.ID)
		assert.Len(t, b.Titles, Width)

		rows := b.Rows()
		require.Len(t, rows, Height)
		for row, cells := range rows {
			require.Len(t, cells, Width)
			for col, cell := range cells {
				assert.Equal(t, Hidden, cell.State)
				assert.False(t, cell.Empty)
				assert.Equal(t, fmt.Sprintf("Q %d/%d", row, col), cell.Question)
				assert.Equal(t, fmt.Sprintf("A %d/%d", row, col), cell.Answer)
			}
		}
	})

	t.Run("Short category leaves empty cells", func(t *testing.T) {
		b, err := New(categories(3, 5, 5, 5, 5, 5))
		require.NoError(t, err)

		for row := range Height {
			cell, err := b.Cell(row, 0)
			require.NoError(t, err)

			assert.Equal(t, row >= 3, cell.Empty, "row %d", row)
		}
	})

	t.Run("Wrong category count", func(t *testing.T) {
		_, err := New(categories(5, 5))

		require.ErrorIs(t, err, ErrDimensions)
	})
}

func TestReveal(t *testing.T) {
	t.Run("Hidden to question to answer", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 5))
		require.NoError(t, err)

		cell, changed, err := b.Reveal(2, 4)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, Question, cell.State)
		assert.Equal(t, "Q 2/4", cell.Text())

		cell, changed, err = b.Reveal(2, 4)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, Answer, cell.State)
		assert.Equal(t, "A 2/4", cell.Text())
	})

	t.Run("Answer is terminal", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 5))
		require.NoError(t, err)

		_, _, _ = b.Reveal(0, 0)
		_, _, _ = b.Reveal(0, 0)

		for range 3 {
			cell, changed, err := b.Reveal(0, 0)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, Answer, cell.State)
			assert.Equal(t, "A 0/0", cell.Text())
		}
	})

	t.Run("Empty cell ignores clicks", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 3))
		require.NoError(t, err)

		cell, changed, err := b.Reveal(4, 5)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, cell.Empty)
		assert.Equal(t, "", cell.Text())
	})

	t.Run("Out of range", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 5))
		require.NoError(t, err)

		for _, rc := range [][2]int{{-1, 0}, {0, -1}, {Height, 0}, {0, Width}} {
			_, _, err := b.Reveal(rc[0], rc[1])
			assert.ErrorIs(t, err, ErrOutOfRange)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("Grid shape", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 5))
		require.NoError(t, err)

		var sb strings.Builder
		require.NoError(t, b.Render(&sb))
		out := sb.String()

		assert.Equal(t, Width, strings.Count(out, "<th>"))
		assert.Equal(t, Height+1, strings.Count(out, "<tr>"))
		assert.Equal(t, Width*Height, strings.Count(out, "<td "))
		assert.Equal(t, Width*Height, strings.Count(out, ">?</td>"))
		assert.NotContains(t, out, "Q 0/0")
		assert.Contains(t, out, b.ID)
	})

	t.Run("Reflects cell state", func(t *testing.T) {
		b, err := New(categories(5, 5, 5, 5, 5, 2))
		require.NoError(t, err)

		_, _, _ = b.Reveal(1, 1)

		var sb strings.Builder
		require.NoError(t, b.Render(&sb))
		out := sb.String()

		assert.Contains(t, out, `<td class="question" data-row="1" data-col="1">Q 1/1</td>`)
		assert.Contains(t, out, `<td class="empty" data-row="4" data-col="5"></td>`)
	})

	t.Run("Escapes remote text", func(t *testing.T) {
		cats := categories(5, 5, 5, 5, 5, 5)
		cats[0].Title = `<script>alert(1)</script>`

		b, err := New(cats)
		require.NoError(t, err)

		var sb strings.Builder
		require.NoError(t, b.Render(&sb))

		assert.NotContains(t, sb.String(), "<script>")
		assert.Contains(t, sb.String(), "&lt;script&gt;")
	})
}
