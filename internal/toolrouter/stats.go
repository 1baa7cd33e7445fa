package toolrouter

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a Router's counters and cache state.
type Stats struct {
	Routes   int64 `json:"routes"`
	Skipped  int64 `json:"skipped"`
	Keyword  int64 `json:"keyword"`
	Semantic int64 `json:"semantic"`
	Fallback int64 `json:"fallback"`

	// Fallbacks that happened while the cache was still building.
	FallbackNotReady int64 `json:"fallback_not_ready"`

	Ready         bool          `json:"ready"`
	CachedTools   int           `json:"cached_tools"`
	CatalogTools  int           `json:"catalog_tools"`
	CacheSource   string        `json:"cache_source,omitempty"`
	BuildDuration time.Duration `json:"build_duration"`
	CacheErrors   int64         `json:"cache_errors"`
}

type routerStats struct {
	routes           atomic.Int64
	skipped          atomic.Int64
	keyword          atomic.Int64
	semantic         atomic.Int64
	fallback         atomic.Int64
	fallbackNotReady atomic.Int64
	cacheErrors      atomic.Int64
}

func (s *routerStats) record(m Method, ready bool) {
	s.routes.Add(1)
	switch m {
	case MethodSkipped:
		s.skipped.Add(1)
	case MethodKeyword:
		s.keyword.Add(1)
	case MethodSemantic:
		s.semantic.Add(1)
	case MethodFallback:
		s.fallback.Add(1)
		if !ready {
			s.fallbackNotReady.Add(1)
		}
	}
}

// Stats returns current counters and cache state.
func (r *Router) Stats() Stats {
	size, source, elapsed := r.cache.info()
	return Stats{
		Routes:           r.stats.routes.Load(),
		Skipped:          r.stats.skipped.Load(),
		Keyword:          r.stats.keyword.Load(),
		Semantic:         r.stats.semantic.Load(),
		Fallback:         r.stats.fallback.Load(),
		FallbackNotReady: r.stats.fallbackNotReady.Load(),
		Ready:            r.cache.isReady(),
		CachedTools:      size,
		CatalogTools:     len(r.tools),
		CacheSource:      source,
		BuildDuration:    elapsed,
		CacheErrors:      r.stats.cacheErrors.Load(),
	}
}
