package toolrouter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/diskcache"
	"github.com/normanking/toolrouter/internal/embedding"
)

// cacheFormatVersion is bumped whenever CacheRecord changes incompatibly.
const cacheFormatVersion = 1

// Cache sources reported in Stats.
const (
	CacheSourceNone     = "none"
	CacheSourceDisk     = "disk"
	CacheSourceComputed = "computed"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EMBEDDING CACHE
// ═══════════════════════════════════════════════════════════════════════════════

// embeddingCache holds the tool vectors. It becomes ready exactly once; the
// entries published at that point are never modified afterwards, so readers
// may keep the slice returned by snapshot.
type embeddingCache struct {
	mu      sync.RWMutex
	entries []CacheEntry // sorted by name
	ready   bool
	source  string
	elapsed time.Duration
}

// snapshot returns the entries and whether the cache is ready.
func (c *embeddingCache) snapshot() ([]CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries, c.ready
}

func (c *embeddingCache) isReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// publish installs the entries and marks the cache ready. Later calls are
// ignored.
func (c *embeddingCache) publish(entries map[string]CacheEntry, source string, elapsed time.Duration) {
	sorted := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	slices.SortFunc(sorted, func(a, b CacheEntry) int {
		return strings.Compare(a.Name, b.Name)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return
	}
	c.entries = sorted
	c.ready = true
	c.source = source
	c.elapsed = elapsed
}

func (c *embeddingCache) info() (size int, source string, elapsed time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), c.source, c.elapsed
}

// ═══════════════════════════════════════════════════════════════════════════════
// BUILD
// ═══════════════════════════════════════════════════════════════════════════════

// buildCache runs once per Router in the background: load a valid record
// from disk, or compute and persist a fresh one, then publish.
func (r *Router) buildCache(ctx context.Context) {
	defer close(r.done)
	start := time.Now()

	if !embedding.Available(r.provider) {
		r.log.Info().Msg("no embedding provider available, semantic matching disabled")
		r.cache.publish(nil, CacheSourceNone, time.Since(start))
		return
	}

	providerName := r.provider.Name()

	if r.diskEnabled() {
		if entries, ok := r.loadCache(providerName); ok {
			r.log.Info().
				Int("tools", len(entries)).
				Str("provider", providerName).
				Dur("elapsed", time.Since(start)).
				Msg("tool embeddings loaded from disk")
			r.cache.publish(entries, CacheSourceDisk, time.Since(start))
			return
		}
	}

	entries := r.computeEntries(ctx)

	// A fallback chain may switch backends mid-build, leaving vectors from
	// two models. Keep only what the current backend can compare against.
	finalName := r.provider.Name()
	switched := finalName != providerName
	if switched {
		entries = keepDimension(entries, r.provider.Dimension())
		r.log.Warn().
			Str("from", providerName).
			Str("to", finalName).
			Int("kept", len(entries)).
			Msg("embedding backend changed during cache build")
	}

	r.log.Info().
		Int("tools", len(entries)).
		Int("catalog", len(r.tools)).
		Str("provider", finalName).
		Dur("elapsed", time.Since(start)).
		Msg("tool embeddings computed")

	dimErr := checkDimension(entries, r.provider.Dimension())

	switch {
	case ctx.Err() != nil:
		r.log.Debug().Msg("cache build cancelled, not persisting")
	case switched:
		r.log.Debug().Msg("mixed-backend cache, not persisting")
	case len(entries) == 0 && len(r.tools) > 0:
		r.log.Warn().Msg("no tool descriptions embedded, not persisting")
	case dimErr != nil:
		r.log.Warn().Err(dimErr).Msg("vectors do not match the provider's declared dimension, not persisting")
	case r.diskEnabled():
		r.saveCache(providerName, entries)
	}

	r.cache.publish(entries, CacheSourceComputed, time.Since(start))
}

func (r *Router) diskEnabled() bool {
	return r.cfg.EnableDiskCache && r.store != nil
}

// loadCache reads and validates the persisted record. A record that is
// present but unusable is reported and removed.
func (r *Router) loadCache(providerName string) (map[string]CacheEntry, bool) {
	name := r.cfg.CacheFileName

	data, err := r.store.Read(name)
	if errors.Is(err, diskcache.ErrNotFound) {
		r.log.Debug().Str("cache", name).Msg("no persisted tool embeddings")
		return nil, false
	}
	if err != nil {
		r.reportCacheError(cacheError(ErrCacheLoadFailed, err))
		r.discardCache(name)
		return nil, false
	}

	var record CacheRecord
	if err := diskcache.Unmarshal(name, data, &record); err != nil {
		r.reportCacheError(cacheError(ErrCacheLoadFailed, err))
		r.discardCache(name)
		return nil, false
	}

	if err := r.validateRecord(&record, providerName); err != nil {
		r.log.Info().Err(err).Str("cache", name).Msg("persisted tool embeddings are stale")
		r.reportCacheError(cacheError(ErrCacheLoadFailed, err))
		r.discardCache(name)
		return nil, false
	}

	if record.Embeddings == nil {
		record.Embeddings = map[string]CacheEntry{}
	}
	return record.Embeddings, true
}

func (r *Router) validateRecord(record *CacheRecord, providerName string) error {
	switch {
	case record.Version != cacheFormatVersion:
		return fmt.Errorf("%w: version %d, want %d", errStaleCache, record.Version, cacheFormatVersion)
	case record.ToolsHash != r.toolsHash:
		return fmt.Errorf("%w: tool catalog changed", errStaleCache)
	case record.ProviderName != providerName:
		return fmt.Errorf("%w: provider %q, want %q", errStaleCache, record.ProviderName, providerName)
	}
	if err := checkDimension(record.Embeddings, r.provider.Dimension()); err != nil {
		return fmt.Errorf("%w: %w", errStaleCache, err)
	}
	return nil
}

// checkDimension reports the first tool with a vector that is not dim
// wide. A provider declaring no dimension accepts any width.
func checkDimension(entries map[string]CacheEntry, dim int) error {
	if dim <= 0 {
		return nil
	}
	for name, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("tool %q has dimension %d, want %d", name, len(e.Embedding), dim)
		}
		for _, kw := range e.KeywordEmbeddings {
			if len(kw) != dim {
				return fmt.Errorf("tool %q has a keyword of dimension %d, want %d", name, len(kw), dim)
			}
		}
	}
	return nil
}

// keepDimension drops tools whose description vector is not dim wide and
// keyword vectors of the wrong width.
func keepDimension(entries map[string]CacheEntry, dim int) map[string]CacheEntry {
	if dim <= 0 {
		return entries
	}
	kept := make(map[string]CacheEntry, len(entries))
	for name, e := range entries {
		if len(e.Embedding) != dim {
			continue
		}
		var kws []embedding.Embedding
		for _, kw := range e.KeywordEmbeddings {
			if len(kw) == dim {
				kws = append(kws, kw)
			}
		}
		e.KeywordEmbeddings = kws
		kept[name] = e
	}
	return kept
}

func (r *Router) discardCache(name string) {
	if err := r.store.Remove(name); err != nil {
		r.log.Warn().Err(err).Str("cache", name).Msg("failed to remove unusable cache")
	}
}

// computeEntries embeds every tool. A tool whose description fails is left
// out; keywords that fail are dropped from that tool only. Tools are
// embedded concurrently into index-addressed slots.
func (r *Router) computeEntries(ctx context.Context) map[string]CacheEntry {
	slots := make([]*CacheEntry, len(r.tools))

	var g errgroup.Group
	g.SetLimit(r.cfg.EmbedConcurrency)
	for i, tool := range r.tools {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = r.embedTool(ctx, tool)
			return nil
		})
	}
	_ = g.Wait()

	entries := make(map[string]CacheEntry, len(r.tools))
	for _, e := range slots {
		if e != nil {
			entries[e.Name] = *e
		}
	}
	return entries
}

func (r *Router) embedTool(ctx context.Context, tool catalog.Tool) *CacheEntry {
	desc, err := r.provider.Embed(ctx, tool.Description)
	if err != nil || len(desc) == 0 {
		r.log.Debug().Err(err).Str("tool", tool.Name).Msg("description embedding failed, tool skipped")
		return nil
	}

	var kwVectors []embedding.Embedding
	for i, v := range embedding.EmbedAll(ctx, r.provider, tool.Keywords) {
		if len(v) == 0 {
			r.log.Debug().Str("tool", tool.Name).Str("keyword", tool.Keywords[i]).Msg("keyword embedding failed")
			continue
		}
		kwVectors = append(kwVectors, v)
	}

	return &CacheEntry{
		Name:              tool.Name,
		Description:       tool.Description,
		Embedding:         desc,
		Keywords:          slices.Clone(tool.Keywords),
		KeywordEmbeddings: kwVectors,
	}
}

func (r *Router) saveCache(providerName string, entries map[string]CacheEntry) {
	name := r.cfg.CacheFileName
	record := CacheRecord{
		Version:      cacheFormatVersion,
		ToolsHash:    r.toolsHash,
		ProviderName: providerName,
		Embeddings:   entries,
	}

	data, err := diskcache.Marshal(name, record)
	if err == nil {
		err = r.store.Write(name, data)
	}
	if err != nil {
		r.reportCacheError(cacheError(ErrCacheSaveFailed, err))
		return
	}

	r.log.Debug().Str("cache", name).Int("bytes", len(data)).Msg("tool embeddings persisted")
}
