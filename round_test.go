package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/jeopardy/trivia"
)

type funcSource struct {
	ids      func(ctx context.Context, count int) ([]trivia.CategoryID, error)
	category func(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error)
}

func (f funcSource) FetchCategoryIDs(ctx context.Context, count int) ([]trivia.CategoryID, error) {
	return f.ids(ctx, count)
}

func (f funcSource) FetchCategory(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error) {
	return f.category(ctx, id, height)
}

func sequentialIDs(start int) func(context.Context, int) ([]trivia.CategoryID, error) {
	return func(_ context.Context, count int) ([]trivia.CategoryID, error) {
		ids := make([]trivia.CategoryID, 0, count)
		for i := range count {
			ids = append(ids, trivia.CategoryID(start+i))
		}
		return ids, nil
	}
}

func titled(id trivia.CategoryID, height int) trivia.Category {
	category := trivia.Category{Title: fmt.Sprintf("Category %d", id)}
	for i := range height {
		category.Clues = append(category.Clues, trivia.Clue{
			Question: fmt.Sprintf("q%d-%d", id, i),
			Answer:   fmt.Sprintf("a%d-%d", id, i),
		})
	}
	return category
}

func TestBuildRound(t *testing.T) {
	t.Run("Keeps id order when fetches finish out of order", func(t *testing.T) {
		src := funcSource{
			ids: sequentialIDs(10),
			category: func(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error) {
				// later ids finish first
				time.Sleep(time.Duration(20-int(id)) * 5 * time.Millisecond)
				return titled(id, height), nil
			},
		}

		categories, err := buildRound(context.Background(), src, 6, 5)

		require.NoError(t, err)
		require.Len(t, categories, 6)
		for i, category := range categories {
			assert.Equal(t, fmt.Sprintf("Category %d", 10+i), category.Title)
			assert.Len(t, category.Clues, 5)
		}
	})

	t.Run("Fetches categories in parallel", func(t *testing.T) {
		var running, peak atomic.Int32

		src := funcSource{
			ids: sequentialIDs(1),
			category: func(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error) {
				n := running.Add(1)
				defer running.Add(-1)

				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(50 * time.Millisecond)
				return titled(id, height), nil
			},
		}

		_, err := buildRound(context.Background(), src, 6, 5)

		require.NoError(t, err)
		assert.Greater(t, peak.Load(), int32(1))
	})

	t.Run("Id fetch failure stops the round", func(t *testing.T) {
		var calls atomic.Int32

		src := funcSource{
			ids: func(context.Context, int) ([]trivia.CategoryID, error) {
				return nil, fmt.Errorf("%w: boom", trivia.ErrNetwork)
			},
			category: func(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error) {
				calls.Add(1)
				return titled(id, height), nil
			},
		}

		categories, err := buildRound(context.Background(), src, 6, 5)

		require.ErrorIs(t, err, trivia.ErrNetwork)
		assert.Nil(t, categories)
		assert.Zero(t, calls.Load())
	})

	t.Run("First category failure cancels the rest", func(t *testing.T) {
		src := funcSource{
			ids: sequentialIDs(1),
			category: func(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error) {
				if id == 3 {
					return trivia.Category{}, fmt.Errorf("%w: category %d has no clues", trivia.ErrMalformed, id)
				}

				select {
				case <-ctx.Done():
					return trivia.Category{}, ctx.Err()
				case <-time.After(5 * time.Second):
					return titled(id, height), nil
				}
			},
		}

		start := time.Now()
		categories, err := buildRound(context.Background(), src, 6, 5)

		require.ErrorIs(t, err, trivia.ErrMalformed)
		assert.False(t, errors.Is(err, context.Canceled))
		assert.Nil(t, categories)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}
