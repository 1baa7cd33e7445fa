package toolrouter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/diskcache"
)

func waitReady(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.WaitForReady(ctx))
	require.True(t, r.IsReady())
}

// ═══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ═══════════════════════════════════════════════════════════════════════════════

func TestRoute_GreetingSkips(t *testing.T) {
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.1), WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	for _, input := range []string{"hello", "Hello!", "hello there", "well hi", "good morning.", "  hey  ", "ok", "你好"} {
		t.Run(input, func(t *testing.T) {
			result := r.Route(context.Background(), input)
			assert.True(t, result.ShouldSkip)
			assert.Equal(t, MethodSkipped, result.Method)
			assert.NotNil(t, result.Tools)
			assert.Empty(t, result.Tools)
			assert.Equal(t, 1.0, result.Confidence)
		})
	}
}

func TestRoute_Scenario1_DefaultHello(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableDiskCache = false
	r := newTestRouter(t, weatherCatalog(), cfg)

	result := r.Route(context.Background(), "hello")
	assert.True(t, result.ShouldSkip)
	assert.Empty(t, result.Tools)
}

func TestRoute_Scenario2_Keyword(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "weather", Description: "Weather lookups", Keywords: []string{"weather"}},
		{Name: "calculator", Description: "Arithmetic", Keywords: []string{"calculate"}},
	}
	cfg := DefaultConfig()
	cfg.EnableDiskCache = false
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "What's the weather forecast?")
	assert.Equal(t, MethodKeyword, result.Method)
	assert.Equal(t, []string{"weather"}, result.ToolNames())
	assert.Equal(t, 1.0, result.Confidence)
	assert.False(t, result.ShouldSkip)
}

func TestRoute_KeywordCaseInsensitive(t *testing.T) {
	tools := []catalog.Tool{{Name: "git", Keywords: []string{"Git Status"}}}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	r := newTestRouter(t, tools, cfg)

	result := r.Route(context.Background(), "show me GIT STATUS now")
	assert.Equal(t, MethodKeyword, result.Method)
	assert.Equal(t, []string{"git"}, result.ToolNames())
}

func TestRoute_KeywordTakesPriority(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "weather", Description: "weather forecast", Keywords: []string{"umbrella"}},
		{Name: "files", Description: "read file contents"},
	}
	cfg := DefaultConfig()
	cfg.EnableDiskCache = false
	cfg.SimilarityThreshold = 0
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "do I need an umbrella to read a file")
	assert.Equal(t, MethodKeyword, result.Method)
	assert.Equal(t, []string{"weather"}, result.ToolNames())
}

func TestRoute_Scenario3_Semantic(t *testing.T) {
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.1), WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "What is the temperature outside")
	assert.Equal(t, MethodSemantic, result.Method)
	assert.Contains(t, result.ToolNames(), "weather")
	assert.NotContains(t, result.ToolNames(), "read_file")
	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestRoute_Scenario4_Fallback(t *testing.T) {
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.5), WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "Tell me a joke about programming")
	assert.Equal(t, MethodFallback, result.Method)
	assert.Equal(t, weatherCatalog(), result.Tools)
	assert.Equal(t, 0.0, result.Confidence)
	assert.False(t, result.ShouldSkip)
}

func TestRoute_Scenario5_ToolGroups(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "other_tool", Keywords: []string{"other"}},
		{Name: "read_file", Keywords: []string{"read"}},
		{Name: "write_file", Keywords: []string{"write"}},
		{Name: "delete_file", Keywords: []string{"delete"}},
	}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	cfg.ToolGroups = [][]string{{"read_file", "write_file", "delete_file"}}
	r := newTestRouter(t, tools, cfg)

	result := r.Route(context.Background(), "please read the config")
	assert.Equal(t, MethodKeyword, result.Method)
	assert.Equal(t, []string{"read_file", "write_file", "delete_file"}, result.ToolNames())
}

func TestRoute_GroupExpansionCapsAtThree(t *testing.T) {
	var tools []catalog.Tool
	var group []string
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("tool%d", i)
		tools = append(tools, catalog.Tool{Name: name, Keywords: []string{"kw" + name}})
		group = append(group, name)
	}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	cfg.ToolGroups = [][]string{group}
	r := newTestRouter(t, tools, cfg)

	result := r.Route(context.Background(), "run kwtool5 please")
	assert.Equal(t, []string{"tool1", "tool2", "tool3", "tool5"}, result.ToolNames())
}

func TestRoute_Scenario6_IndependentRouters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableDiskCache = false
	cfg.SimilarityThreshold = 0.1

	left := newTestRouter(t, []catalog.Tool{
		{Name: "weather", Description: "weather forecast", Keywords: []string{"rain"}},
		{Name: "sunny", Description: "sunny temperature"},
	}, cfg, WithProvider(newConceptProvider("concept")))
	right := newTestRouter(t, []catalog.Tool{
		{Name: "reader", Description: "read file", Keywords: []string{"open"}},
		{Name: "writer", Description: "write file"},
	}, cfg, WithProvider(newConceptProvider("concept")))

	inputs := []string{"will it rain", "open the file", "weather please", "write a file", "unrelated question"}
	ownTools := func(r *Router) map[string]bool {
		own := map[string]bool{}
		for _, n := range catalog.Names(r.AllTools()) {
			own[n] = true
		}
		return own
	}

	var wg sync.WaitGroup
	for _, r := range []*Router{left, right} {
		own := ownTools(r)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, input := range inputs {
					for _, name := range r.Route(context.Background(), input).ToolNames() {
						assert.True(t, own[name], "tool %s leaked into another router", name)
					}
				}
			}()
		}
	}
	wg.Wait()

	waitReady(t, left)
	waitReady(t, right)
}

func TestRoute_MaxToolsKeyword(t *testing.T) {
	var tools []catalog.Tool
	for i := 0; i < 5; i++ {
		tools = append(tools, catalog.Tool{Name: fmt.Sprintf("t%d", i), Keywords: []string{"shared"}})
	}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	cfg.MaxTools = 2
	r := newTestRouter(t, tools, cfg)

	result := r.Route(context.Background(), "a shared keyword")
	assert.Equal(t, []string{"t0", "t1"}, result.ToolNames())

	// Fallback is the whole catalog regardless of the cap.
	assert.Len(t, r.Route(context.Background(), "nothing matches here").Tools, 5)
}

func TestRoute_MaxToolsKeepsHighestScores(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "w3", Description: "weather file joke"},
		{Name: "w2", Description: "weather file"},
		{Name: "w1", Description: "weather"},
	}
	cfg := semanticConfig(0.1)
	cfg.MaxTools = 2
	cfg.EnableDebugInfo = true
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "weather")
	require.Equal(t, MethodSemantic, result.Method)
	// Catalog order, highest two scores.
	assert.Equal(t, []string{"w2", "w1"}, result.ToolNames())

	require.NotNil(t, result.Debug)
	require.Len(t, result.Debug.Scores, 2)
	assert.Equal(t, "w1", result.Debug.Scores[0].ToolName)
	assert.Equal(t, "w2", result.Debug.Scores[1].ToolName)
	assert.Greater(t, result.Debug.Scores[0].Score, result.Debug.Scores[1].Score)

	mean := (result.Debug.Scores[0].Score + result.Debug.Scores[1].Score) / 2
	assert.InDelta(t, mean, result.Confidence, 1e-9)
}

func TestRoute_TiesBrokenByName(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "charlie", Description: "weather"},
		{Name: "alpha", Description: "weather"},
		{Name: "bravo", Description: "weather"},
	}
	cfg := semanticConfig(0.1)
	cfg.MaxTools = 1
	cfg.EnableDebugInfo = true
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	for i := 0; i < 10; i++ {
		result := r.Route(context.Background(), "rain")
		require.Equal(t, MethodSemantic, result.Method)
		assert.Equal(t, []string{"alpha"}, result.ToolNames())
	}
}

func TestRoute_SemanticWithGroups(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "forecast", Description: "weather forecast"},
		{Name: "radar", Description: "radar images"},
		{Name: "jokes", Description: "programming joke"},
	}
	cfg := semanticConfig(0.3)
	cfg.ToolGroups = [][]string{{"forecast", "radar"}}
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "is rain expected")
	assert.Equal(t, MethodSemantic, result.Method)
	assert.Equal(t, []string{"forecast", "radar"}, result.ToolNames())
}

func TestRoute_MatchedKeywordFromVectors(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "weather", Description: "joke", Keywords: []string{"file", "forecast"}},
	}
	cfg := semanticConfig(0.1)
	cfg.EnableDebugInfo = true
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	result := r.Route(context.Background(), "sunny")
	require.Equal(t, MethodSemantic, result.Method)
	require.Len(t, result.Debug.Scores, 1)
	assert.Equal(t, "forecast", result.Debug.Scores[0].MatchedKeyword)
}

func TestRouteWithContext(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "weather", Keywords: []string{"weather"}},
		{Name: "files", Keywords: []string{"file"}},
	}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	cfg.EnableDebugInfo = true
	r := newTestRouter(t, tools, cfg)

	history := []string{"what about the weather", "one", "two", "three", "four"}
	result := r.RouteWithContext(context.Background(), "and then?", history)

	// The weather line is outside the four-line window.
	assert.Equal(t, MethodFallback, result.Method)
	require.NotNil(t, result.Debug)
	assert.Equal(t, "one two three four and then?", result.Debug.Input)

	result = r.RouteWithContext(context.Background(), "save it", []string{"open the file"})
	assert.Equal(t, MethodKeyword, result.Method)
	assert.Equal(t, []string{"files"}, result.ToolNames())
}

func TestCombineContext(t *testing.T) {
	tests := []struct {
		name     string
		history  []string
		expected string
	}{
		{"no history", nil, "now"},
		{"short history", []string{"a", "b"}, "a b now"},
		{"window", []string{"a", "b", "c", "d", "e", "f"}, "c d e f now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, combineContext("now", tt.history, 4))
		})
	}
}

func TestRoute_DebugInfo(t *testing.T) {
	tools := []catalog.Tool{{Name: "weather", Keywords: []string{"Weather"}}}

	t.Run("enabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableSemanticMatching = false
		cfg.EnableDebugInfo = true
		r := newTestRouter(t, tools, cfg)

		result := r.Route(context.Background(), "weather today")
		require.NotNil(t, result.Debug)
		_, err := uuid.Parse(result.Debug.RequestID)
		assert.NoError(t, err)
		assert.Equal(t, "weather today", result.Debug.Input)
		require.Len(t, result.Debug.Scores, 1)
		assert.Equal(t, ToolScore{ToolName: "weather", Score: 1.0, MatchedKeyword: "weather"}, result.Debug.Scores[0])
		assert.GreaterOrEqual(t, result.Debug.Elapsed, time.Duration(0))

		skipped := r.Route(context.Background(), "hello")
		require.NotNil(t, skipped.Debug)
		assert.Empty(t, skipped.Debug.Scores)

		fallback := r.Route(context.Background(), "something else")
		require.NotNil(t, fallback.Debug)
		assert.Empty(t, fallback.Debug.Scores)
		assert.NotEqual(t, result.Debug.RequestID, fallback.Debug.RequestID)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableSemanticMatching = false
		r := newTestRouter(t, tools, cfg)
		assert.Nil(t, r.Route(context.Background(), "weather today").Debug)
	})
}

func TestRoute_ResultsAreCopies(t *testing.T) {
	tools := []catalog.Tool{{Name: "weather", Keywords: []string{"weather"}}}
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	r := newTestRouter(t, tools, cfg)

	tools[0].Keywords[0] = "mutated"
	result := r.Route(context.Background(), "weather now")
	require.Equal(t, MethodKeyword, result.Method)

	result.Tools[0].Keywords[0] = "changed"
	assert.Equal(t, []string{"weather"}, r.AllTools()[0].Keywords)
}

// ═══════════════════════════════════════════════════════════════════════════════
// READINESS
// ═══════════════════════════════════════════════════════════════════════════════

func TestRoute_BeforeReadyFallsBack(t *testing.T) {
	provider := newGatedProvider()
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.1), WithProvider(provider))
	defer provider.open()

	assert.False(t, r.IsReady())

	done := make(chan *RouteResult)
	go func() { done <- r.Route(context.Background(), "What is the temperature outside") }()

	select {
	case result := <-done:
		assert.Equal(t, MethodFallback, result.Method)
		assert.Len(t, result.Tools, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("Route blocked on the cache build")
	}

	assert.ErrorIs(t, r.WaitForReadyTimeout(20*time.Millisecond), ErrTimeout)

	// The timeout did not cancel the build.
	provider.open()
	waitReady(t, r)
	assert.Equal(t, MethodSemantic, r.Route(context.Background(), "What is the temperature outside").Method)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.FallbackNotReady)
	assert.Equal(t, int64(1), stats.Semantic)
}

func TestWaitForReady_ContextCancelled(t *testing.T) {
	provider := newGatedProvider()
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.1), WithProvider(provider))
	defer provider.open()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.WaitForReady(ctx), context.DeadlineExceeded)
	assert.False(t, r.IsReady())
}

func TestClose_CancelsBuildWithoutPersisting(t *testing.T) {
	dir := t.TempDir()
	cfg := semanticConfig(0.1)
	cfg.EnableDiskCache = true
	provider := newGatedProvider()

	r := New(weatherCatalog(), cfg, WithProvider(provider), WithStore(diskcache.NewFileStore(dir)))
	require.NoError(t, r.Close())

	assert.True(t, r.IsReady())
	assert.Equal(t, 0, r.Stats().CachedTools)
	_, err := os.Stat(filepath.Join(dir, DefaultCacheFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSemanticDisabled_ReadyImmediately(t *testing.T) {
	provider := newConceptProvider("concept")
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	cfg.EnableDiskCache = false
	r := newTestRouter(t, weatherCatalog(), cfg, WithProvider(provider))

	assert.True(t, r.IsReady())
	assert.NoError(t, r.WaitForReadyTimeout(time.Millisecond))
	assert.Equal(t, MethodFallback, r.Route(context.Background(), "What is the temperature outside").Method)
	assert.Equal(t, int64(0), provider.calls.Load())
}

func TestNoProvider_ReadyWithEmptyCache(t *testing.T) {
	dir := t.TempDir()
	cfg := semanticConfig(0.1)
	cfg.EnableDiskCache = true

	for name, opt := range map[string]Option{
		"nil":         WithProvider(nil),
		"unavailable": WithProvider(unavailableProvider{newConceptProvider("down")}),
	} {
		t.Run(name, func(t *testing.T) {
			r := newTestRouter(t, weatherCatalog(), cfg, opt, WithStore(diskcache.NewFileStore(dir)))
			waitReady(t, r)

			assert.Equal(t, 0, r.Stats().CachedTools)
			assert.Equal(t, CacheSourceNone, r.Stats().CacheSource)
			assert.Equal(t, MethodFallback, r.Route(context.Background(), "What is the temperature outside").Method)

			_, err := os.Stat(filepath.Join(dir, DefaultCacheFileName))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestPartialEmbeddingFailures(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "broken", Description: "broken description", Keywords: []string{"weather"}},
		{Name: "weather", Description: "weather forecast", Keywords: []string{"rain", "bad keyword"}},
	}
	provider := newConceptProvider("concept", "broken description", "bad keyword")
	cfg := semanticConfig(0.1)
	cfg.EnableDebugInfo = true
	r := newTestRouter(t, tools, cfg, WithProvider(provider))
	waitReady(t, r)

	entries, ready := r.cache.snapshot()
	require.True(t, ready)
	require.Len(t, entries, 1)
	assert.Equal(t, "weather", entries[0].Name)
	assert.Equal(t, []string{"rain", "bad keyword"}, entries[0].Keywords)
	assert.Len(t, entries[0].KeywordEmbeddings, 1)

	result := r.Route(context.Background(), "sunny outside")
	require.Equal(t, MethodSemantic, result.Method)
	assert.Equal(t, []string{"weather"}, result.ToolNames())
	// Keyword vectors no longer line up with keywords.
	assert.Empty(t, result.Debug.Scores[0].MatchedKeyword)
}

func TestQueryEmbeddingFailureFallsBack(t *testing.T) {
	provider := newConceptProvider("concept", "What is the temperature outside")
	r := newTestRouter(t, weatherCatalog(), semanticConfig(0.1), WithProvider(provider))
	waitReady(t, r)

	assert.Equal(t, MethodFallback, r.Route(context.Background(), "What is the temperature outside").Method)
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATS
// ═══════════════════════════════════════════════════════════════════════════════

func TestStats(t *testing.T) {
	tools := []catalog.Tool{
		{Name: "weather", Description: "weather", Keywords: []string{"umbrella"}},
		{Name: "files", Description: "file contents"},
	}
	cfg := semanticConfig(0.3)
	cfg.EnableKeywordMatching = true
	r := newTestRouter(t, tools, cfg, WithProvider(newConceptProvider("concept")))
	waitReady(t, r)

	r.Route(context.Background(), "hello")
	r.Route(context.Background(), "read a file")
	r.Route(context.Background(), "tell a joke")
	r.Route(context.Background(), "umbrella")

	stats := r.Stats()
	assert.Equal(t, int64(4), stats.Routes)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(1), stats.Keyword)
	assert.Equal(t, int64(1), stats.Semantic)
	assert.Equal(t, int64(1), stats.Fallback)
	assert.True(t, stats.Ready)
	assert.Equal(t, 2, stats.CachedTools)
	assert.Equal(t, 2, stats.CatalogTools)
	assert.Equal(t, CacheSourceComputed, stats.CacheSource)
	assert.Equal(t, "concept", r.ProviderName())
}

func TestAllTools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSemanticMatching = false
	r := newTestRouter(t, weatherCatalog(), cfg)
	assert.Equal(t, weatherCatalog(), r.AllTools())
	assert.True(t, strings.HasSuffix(r.Config().CacheFileName, ".json"))
}
