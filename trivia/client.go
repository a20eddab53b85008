/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxBodySize = 4 << 20

type apiCategory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type apiClue struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category struct {
		Title string `json:"title"`
	} `json:"category"`
}

// Client talks to the remote trivia service. The zero value is not usable;
// construct one with NewClient.
type Client struct {
	baseURL string
	http    *http.Client

	// Cache, when set, stores raw response bodies keyed by request URL.
	Cache    Cache
	CacheTTL time.Duration

	// Logf receives non-fatal problems such as cache failures.
	Logf func(format string, args ...any)

	mu  sync.Mutex
	rng *rand.Rand
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithRand replaces the random source, mostly so tests are reproducible.
func (c *Client) WithRand(rng *rand.Rand) *Client {
	c.mu.Lock()
	c.rng = rng
	c.mu.Unlock()

	return c
}

func (c *Client) intN(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.IntN(n)
}

func (c *Client) sample(clues []apiClue, height int) []apiClue {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Sample(clues, height, c.rng)
}

// FetchCategoryIDs requests count category ids starting at a random offset.
func (c *Client) FetchCategoryIDs(ctx context.Context, count int) ([]CategoryID, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("offset", strconv.Itoa(c.intN(MaxCategoryOffset+1)))

	var categories []apiCategory
	if err := c.getJSON(ctx, "/api/categories", q, &categories); err != nil {
		return nil, err
	}

	if len(categories) < count {
		return nil, fmt.Errorf("%w: wanted %d categories, got %d", ErrMalformed, count, len(categories))
	}

	ids := make([]CategoryID, 0, count)
	for _, category := range categories[:count] {
		ids = append(ids, CategoryID(category.ID))
	}

	return ids, nil
}

// FetchCategory requests every clue in a category and keeps a sampled run of
// at most height of them.
func (c *Client) FetchCategory(ctx context.Context, id CategoryID, height int) (Category, error) {
	q := url.Values{}
	q.Set("category", strconv.Itoa(int(id)))

	var clues []apiClue
	if err := c.getJSON(ctx, "/api/clues", q, &clues); err != nil {
		return Category{}, err
	}

	if len(clues) == 0 {
		return Category{}, fmt.Errorf("%w: category %d has no clues", ErrMalformed, id)
	}

	sampled := c.sample(clues, height)

	category := Category{
		Title: sampled[0].Category.Title,
		Clues: make([]Clue, 0, len(sampled)),
	}
	for _, clue := range sampled {
		category.Clues = append(category.Clues, Clue{
			Question: clue.Question,
			Answer:   clue.Answer,
		})
	}

	return category, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path + "?" + q.Encode()

	body, err := c.cached(ctx, u)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrMalformed, path, err)
	}

	return nil
}

func (c *Client) cached(ctx context.Context, u string) ([]byte, error) {
	if c.Cache != nil {
		body, ok, err := c.Cache.Get(ctx, u)
		switch {
		case err != nil:
			c.logf("CACHE: Lookup of %s failed: %v", u, err)
		case ok:
			return body, nil
		}
	}

	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil && json.Valid(body) {
		if err := c.Cache.Set(ctx, u, body, c.CacheTTL); err != nil {
			c.logf("CACHE: Store of %s failed: %v", u, err)
		}
	}

	return body, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrNetwork, u, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNetwork, u, err)
	}

	return body, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}
