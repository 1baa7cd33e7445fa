package toolrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.25, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.MaxTools)
	assert.True(t, cfg.EnableKeywordMatching)
	assert.True(t, cfg.EnableSemanticMatching)
	assert.Equal(t, 3, cfg.MinInputLength)
	assert.Empty(t, cfg.ToolGroups)
	assert.True(t, cfg.EnableDiskCache)
	assert.Equal(t, "tool_embeddings_cache.json", cfg.CacheFileName)
	assert.False(t, cfg.EnableDebugInfo)
	assert.Equal(t, 0.6, cfg.DescriptionWeight)
	assert.Equal(t, 0.4, cfg.KeywordWeight)
	assert.Contains(t, cfg.GreetingPatterns, "hello")
	assert.Contains(t, cfg.GreetingPatterns, "你好")
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"threshold zero", func(c *Config) { c.SimilarityThreshold = 0 }, false},
		{"threshold one", func(c *Config) { c.SimilarityThreshold = 1 }, false},
		{"threshold negative", func(c *Config) { c.SimilarityThreshold = -0.1 }, true},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.5 }, true},
		{"unlimited tools", func(c *Config) { c.MaxTools = 0 }, false},
		{"negative max tools", func(c *Config) { c.MaxTools = -1 }, true},
		{"negative min length", func(c *Config) { c.MinInputLength = -1 }, true},
		{"negative weight", func(c *Config) { c.KeywordWeight = -0.4 }, true},
		{"negative concurrency", func(c *Config) { c.EmbedConcurrency = -2 }, true},
		{"negative window", func(c *Config) { c.ContextWindow = -1 }, true},
		{"missing cache name", func(c *Config) { c.CacheFileName = " " }, true},
		{"missing cache name without disk", func(c *Config) { c.CacheFileName = ""; c.EnableDiskCache = false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_Normalized(t *testing.T) {
	in := Config{
		SimilarityThreshold: 3,
		MaxTools:            -5,
		GreetingPatterns:    []string{"  Hello ", "", "GOOD Day"},
		ToolGroups:          [][]string{{"a", "b"}, {}},
	}

	out := in.normalized()
	assert.Equal(t, 1.0, out.SimilarityThreshold)
	assert.Equal(t, 0, out.MaxTools)
	assert.Equal(t, []string{"hello", "good day"}, out.GreetingPatterns)
	assert.Equal(t, [][]string{{"a", "b"}}, out.ToolGroups)
	assert.Equal(t, DefaultDescriptionWeight, out.DescriptionWeight)
	assert.Equal(t, DefaultKeywordWeight, out.KeywordWeight)
	assert.Equal(t, DefaultEmbedConcurrency, out.EmbedConcurrency)
	assert.Equal(t, DefaultContextWindow, out.ContextWindow)
	assert.Equal(t, DefaultCacheFileName, out.CacheFileName)

	// The caller's slices are not shared.
	out.ToolGroups[0][0] = "changed"
	assert.Equal(t, "a", in.ToolGroups[0][0])
}
