// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests with a politeness delay between requests so
// the source site never sees more than one request per delay window.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"beceharvest/core"
)

const (
	defaultTimeout = 30 * time.Second
	defaultDelay   = 2 * time.Second
)

// PoliteFetcher fetches pages sequentially with a minimum delay between
// requests. Safe for concurrent use; concurrent callers are serialized.
type PoliteFetcher struct {
	client *resty.Client
	delay  time.Duration

	mu       sync.Mutex
	lastDone time.Time
}

// Option configures a PoliteFetcher.
type Option func(*PoliteFetcher)

// WithDelay overrides the minimum delay between requests.
func WithDelay(d time.Duration) Option {
	return func(f *PoliteFetcher) { f.delay = d }
}

// New creates a PoliteFetcher with sensible defaults.
func New(opts ...Option) *PoliteFetcher {
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", core.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	f := &PoliteFetcher{client: client, delay: defaultDelay}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML content of the given URL, waiting out the
// politeness delay first if the previous request finished too recently.
func (f *PoliteFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if wait := f.delay - time.Since(f.lastDone); wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	defer func() { f.lastDone = time.Now() }()

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", core.ErrFetch, url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d for %s", core.ErrFetch, resp.StatusCode(), url)
	}

	return &core.FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode(),
		HTML:       string(resp.Body()),
	}, nil
}
