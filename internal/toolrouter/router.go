// Package toolrouter selects the tools relevant to a piece of user text.
//
// Routing runs a fixed pipeline and returns at the first stage that
// produces something:
//
//  1. greeting detection, which needs no tools at all
//  2. keyword matching against each tool's keywords
//  3. semantic matching against cached tool embeddings
//  4. fallback to the whole catalog
//
// Keyword and semantic matches are widened with the configured tool
// groups. Tool embeddings are built once per Router in the background and
// optionally persisted; routing never waits for them.
package toolrouter

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/diskcache"
	"github.com/normanking/toolrouter/internal/embedding"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ═══════════════════════════════════════════════════════════════════════════════

// Router routes user input to a subset of a fixed tool catalog. It is safe
// for concurrent use. Routers share no state with each other.
type Router struct {
	tools     []catalog.Tool
	known     map[string]struct{}
	keywords  keywordIndex
	toolsHash string
	cfg       Config

	provider embedding.Provider
	store    diskcache.Store
	log      zerolog.Logger

	cache  *embeddingCache
	done   chan struct{}
	cancel context.CancelFunc

	handlerMu    sync.RWMutex
	onCacheError func(error)

	stats routerStats
}

// Option configures a Router.
type Option func(*Router)

// WithProvider sets the embedding provider. Without one, semantic
// matching contributes nothing.
func WithProvider(p embedding.Provider) Option {
	return func(r *Router) { r.provider = p }
}

// WithStore sets where the embedding cache is persisted. The default is a
// FileStore under the user cache directory.
func WithStore(s diskcache.Store) Option {
	return func(r *Router) { r.store = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.log = l }
}

// WithCacheErrorHandler registers the cache error observer before the
// background build starts, so no error is missed.
func WithCacheErrorHandler(fn func(error)) Option {
	return func(r *Router) { r.onCacheError = fn }
}

// New creates a Router over a private copy of tools and starts building
// the embedding cache in the background. Out-of-range settings in cfg are
// clamped; use Config.Validate to reject them instead.
func New(tools []catalog.Tool, cfg Config, opts ...Option) *Router {
	r := &Router{
		tools: catalog.Clone(tools),
		cfg:   cfg.normalized(),
		log:   zerolog.Nop(),
		cache: &embeddingCache{},
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.known = make(map[string]struct{}, len(r.tools))
	for _, t := range r.tools {
		r.known[t.Name] = struct{}{}
	}
	r.keywords = newKeywordIndex(r.tools)
	r.toolsHash = catalog.Hash(r.tools)
	r.log = r.log.With().Str("component", "toolrouter").Logger()

	if r.cfg.EnableDiskCache && r.store == nil {
		r.store = diskcache.NewFileStore("")
	}

	if !r.cfg.EnableSemanticMatching {
		r.cache.publish(nil, CacheSourceNone, 0)
		r.cancel = func() {}
		close(r.done)
		return r
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.buildCache(ctx)

	return r
}

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ═══════════════════════════════════════════════════════════════════════════════

// Route selects tools for input. It never blocks on the embedding cache and
// never fails: the worst outcome is the full catalog. ctx bounds the query
// embedding call only.
func (r *Router) Route(ctx context.Context, input string) *RouteResult {
	start := time.Now()
	result := r.route(ctx, input)

	r.stats.record(result.Method, r.cache.isReady())
	if r.cfg.EnableDebugInfo && result.Debug != nil {
		result.Debug.Elapsed = time.Since(start)
	}

	r.log.Debug().
		Str("method", string(result.Method)).
		Int("tools", len(result.Tools)).
		Float64("confidence", result.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("routed")
	return result
}

// RouteWithContext routes input together with up to ContextWindow of the
// most recent history lines, joined with single spaces.
func (r *Router) RouteWithContext(ctx context.Context, input string, history []string) *RouteResult {
	return r.Route(ctx, combineContext(input, history, r.cfg.ContextWindow))
}

func combineContext(input string, history []string, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	parts := make([]string, 0, len(history)+1)
	parts = append(parts, history...)
	parts = append(parts, input)
	return strings.Join(parts, " ")
}

func (r *Router) route(ctx context.Context, input string) *RouteResult {
	if isGreeting(input, r.cfg.GreetingPatterns, r.cfg.MinInputLength) {
		return &RouteResult{
			Tools:      []catalog.Tool{},
			Confidence: 1.0,
			Method:     MethodSkipped,
			ShouldSkip: true,
			Debug:      r.debugInfo(input, nil),
		}
	}

	if r.cfg.EnableKeywordMatching {
		if scores := r.keywords.match(input); len(scores) > 0 {
			return &RouteResult{
				Tools:      r.selectTools(scores),
				Confidence: 1.0,
				Method:     MethodKeyword,
				Debug:      r.debugInfo(input, scores),
			}
		}
	}

	if r.cfg.EnableSemanticMatching {
		if scores := r.matchSemantic(ctx, input); len(scores) > 0 {
			return &RouteResult{
				Tools:      r.selectTools(scores),
				Confidence: meanScore(scores),
				Method:     MethodSemantic,
				Debug:      r.debugInfo(input, scores),
			}
		}
	}

	return &RouteResult{
		Tools:      catalog.Clone(r.tools),
		Confidence: 0,
		Method:     MethodFallback,
		Debug:      r.debugInfo(input, nil),
	}
}

// selectTools expands the ranked matches with tool groups, caps the set at
// MaxTools keeping direct matches ahead of group members, and returns the
// surviving tools in catalog order.
func (r *Router) selectTools(scores []ToolScore) []catalog.Tool {
	matched := make([]string, len(scores))
	for i, s := range scores {
		matched[i] = s.ToolName
	}

	keep := make(map[string]struct{})
	for _, name := range expandGroups(matched, r.cfg.ToolGroups) {
		if _, ok := r.known[name]; !ok {
			continue
		}
		if r.cfg.MaxTools > 0 && len(keep) >= r.cfg.MaxTools {
			break
		}
		keep[name] = struct{}{}
	}

	return catalog.Clone(catalog.Filter(r.tools, keep))
}

func (r *Router) debugInfo(input string, scores []ToolScore) *DebugInfo {
	if !r.cfg.EnableDebugInfo {
		return nil
	}
	if scores == nil {
		scores = []ToolScore{}
	}
	return &DebugInfo{
		RequestID: uuid.NewString(),
		Input:     input,
		Scores:    scores,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// READINESS
// ═══════════════════════════════════════════════════════════════════════════════

// IsReady reports whether the embedding cache has been loaded or computed.
func (r *Router) IsReady() bool {
	return r.cache.isReady()
}

// Done is closed when the background cache build has finished.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

// WaitForReady blocks until the cache is ready or ctx is done.
func (r *Router) WaitForReady(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForReadyTimeout waits at most d. On timeout it returns ErrTimeout and
// the build carries on.
func (r *Router) WaitForReadyTimeout(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-r.done:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// Close cancels an unfinished cache build and waits for it to stop. A
// cancelled build publishes what it has but does not persist it.
func (r *Router) Close() error {
	r.cancel()
	<-r.done
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// CATALOG AND CACHE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════

// AllTools returns a copy of the catalog.
func (r *Router) AllTools() []catalog.Tool {
	return catalog.Clone(r.tools)
}

// Config returns the effective configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// ProviderName returns the embedding provider's name, or "" without one.
func (r *Router) ProviderName() string {
	if r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// CacheLocation describes where the cache is persisted, when known.
func (r *Router) CacheLocation() string {
	if l, ok := r.store.(diskcache.Locator); ok {
		return l.Location(r.cfg.CacheFileName)
	}
	return ""
}

// ClearDiskCache deletes the persisted cache. A missing cache is not an
// error. The in-memory cache is unaffected.
func (r *Router) ClearDiskCache() error {
	if r.store == nil {
		return nil
	}
	return r.store.Remove(r.cfg.CacheFileName)
}

// OnCacheError registers fn to receive ErrCacheLoadFailed and
// ErrCacheSaveFailed errors. Errors raised before registration are only
// logged; use WithCacheErrorHandler to observe them all.
func (r *Router) OnCacheError(fn func(error)) {
	r.handlerMu.Lock()
	r.onCacheError = fn
	r.handlerMu.Unlock()
}

func (r *Router) reportCacheError(err error) {
	r.stats.cacheErrors.Add(1)
	r.log.Warn().Err(err).Msg("embedding cache error")

	r.handlerMu.RLock()
	fn := r.onCacheError
	r.handlerMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
