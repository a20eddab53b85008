/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package trivia fetches categories and clues from a jService-compatible API.
package trivia

import (
	"errors"
	"math/rand/v2"
)

// MaxCategoryOffset bounds the random offset into the remote category list.
const MaxCategoryOffset = 100

var (
	ErrNetwork   = errors.New("trivia service unreachable")
	ErrMalformed = errors.New("malformed trivia data")
)

type CategoryID int

type Clue struct {
	Question string
	Answer   string
}

type Category struct {
	Title string
	Clues []Clue
}

// Sample returns a contiguous run of height clues starting at a uniformly
// random offset. Sets of height or fewer clues are returned unchanged.
func Sample[T any](items []T, height int, rng *rand.Rand) []T {
	if len(items) <= height {
		return items
	}

	start := rng.IntN(len(items) - height + 1)

	return items[start : start+height]
}
