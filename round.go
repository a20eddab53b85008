/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"

	"github.com/Seednode/jeopardy/trivia"
)

type roundSource interface {
	FetchCategoryIDs(ctx context.Context, count int) ([]trivia.CategoryID, error)
	FetchCategory(ctx context.Context, id trivia.CategoryID, height int) (trivia.Category, error)
}

// buildRound fetches width category ids, then every category in parallel.
// Categories come back in id order. The first failure cancels the rest.
func buildRound(ctx context.Context, src roundSource, width, height int) ([]trivia.Category, error) {
	ids, err := src.FetchCategoryIDs(ctx, width)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	categories := make([]trivia.Category, len(ids))

	for i, id := range ids {
		wg.Go(func() {
			category, err := src.FetchCategory(ctx, id, height)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})

				return
			}

			categories[i] = category
		})
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return categories, nil
}
