package embedding

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Default query cache configuration values.
const (
	DefaultCacheMaxSize = 1000
	DefaultCacheTTL     = time.Hour
)

// CacheStats contains query cache statistics.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// CachedProvider memoises Embed results in an expiring LRU keyed by the
// exact text; backends may treat case and spacing as significant. It is meant for repeated queries; the router keeps its
// own tool embeddings. Failures are never cached.
type CachedProvider struct {
	inner Provider
	cache *expirable.LRU[string, Embedding]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps inner. Non-positive size or ttl select the defaults.
func NewCachedProvider(inner Provider, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = DefaultCacheMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		inner: inner,
		cache: expirable.NewLRU[string, Embedding](size, nil, ttl),
	}
}

// Name is the wrapped provider's name; caching does not change vectors.
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Dimension is the wrapped provider's dimension.
func (c *CachedProvider) Dimension() int { return c.inner.Dimension() }

// Available delegates to the wrapped provider.
func (c *CachedProvider) Available() bool { return Available(c.inner) }

// Similarity delegates to the wrapped provider.
func (c *CachedProvider) Similarity(a, b Embedding) float64 {
	return Similarity(c.inner, a, b)
}

// Embed returns a cached vector or computes and stores one.
func (c *CachedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if e, ok := c.cache.Get(text); ok {
		c.hits.Add(1)
		return e, nil
	}
	c.misses.Add(1)

	e, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, e)
	return e, nil
}

// Stats returns current cache statistics.
func (c *CachedProvider) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100.0
	}
	return CacheStats{
		Hits:    hits,
		Misses:  misses,
		Size:    c.cache.Len(),
		HitRate: hitRate,
	}
}
