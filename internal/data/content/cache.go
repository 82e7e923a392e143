package content

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"xplore/internal/core/ports"
	"xplore/internal/shared/observability"
)

// DefaultCacheEntries is the number of files kept by NewCachedFetcher when
// size is not positive.
const DefaultCacheEntries = 256

// CachedFetcher memoizes successful fetches of another fetcher. Failures
// are not cached.
type CachedFetcher struct {
	next  ports.ContentFetcher
	cache *lru.Cache[string, string]
}

func NewCachedFetcher(next ports.ContentFetcher, size int) (*CachedFetcher, error) {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedFetcher{next: next, cache: cache}, nil
}

func (c *CachedFetcher) Fetch(ctx context.Context, path string) (string, error) {
	if text, ok := c.cache.Get(path); ok {
		observability.ContentCacheHitsTotal.Inc()
		return text, nil
	}
	text, err := c.next.Fetch(ctx, path)
	if err != nil {
		return "", err
	}
	c.cache.Add(path, text)
	return text, nil
}

// Invalidate drops one path; used when a watcher reports a change.
func (c *CachedFetcher) Invalidate(path string) { c.cache.Remove(path) }

// Purge drops every cached file.
func (c *CachedFetcher) Purge() { c.cache.Purge() }

func (c *CachedFetcher) Len() int { return c.cache.Len() }
