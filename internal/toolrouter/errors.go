package toolrouter

import "fmt"

var (
	// ErrTimeout is returned by WaitForReadyTimeout when the deadline passes
	// first. The cache build keeps running.
	ErrTimeout = fmt.Errorf("timed out waiting for tool embeddings")

	// ErrCacheLoadFailed reports a persisted cache that could not be read,
	// decoded or reused. The router discards it and recomputes.
	ErrCacheLoadFailed = fmt.Errorf("embedding cache load failed")

	// ErrCacheSaveFailed reports a cache that could not be persisted. The
	// in-memory cache is still used.
	ErrCacheSaveFailed = fmt.Errorf("embedding cache save failed")

	errStaleCache = fmt.Errorf("stale cache record")
)

// cacheError wraps cause so that errors.Is matches both the sentinel and
// the cause.
func cacheError(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
