package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		p, err := NewFromConfig(ctx, ProviderConfig{Kind: KindNone})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("default is lexical", func(t *testing.T) {
		p, err := NewFromConfig(ctx, ProviderConfig{LexicalDimension: 64})
		require.NoError(t, err)
		assert.Equal(t, "lexical-v1:64", p.Name())
	})

	t.Run("ollama", func(t *testing.T) {
		p, err := NewFromConfig(ctx, ProviderConfig{Kind: "Ollama"})
		require.NoError(t, err)
		assert.IsType(t, &OllamaProvider{}, p)
	})

	t.Run("openai", func(t *testing.T) {
		p, err := NewFromConfig(ctx, ProviderConfig{Kind: KindOpenAI})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIProvider{}, p)
	})

	t.Run("query cache wraps", func(t *testing.T) {
		p, err := NewFromConfig(ctx, ProviderConfig{Kind: KindLexical, QueryCacheSize: 8, QueryCacheTTL: time.Minute})
		require.NoError(t, err)
		require.IsType(t, &CachedProvider{}, p)
		assert.Equal(t, "lexical-v1:256", p.Name())
	})

	t.Run("auto chain", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		p, err := NewFromConfig(ctx, ProviderConfig{Kind: KindAuto})
		require.NoError(t, err)
		require.IsType(t, &MultiProvider{}, p)
		// Ollama has not failed yet, so it leads the chain.
		assert.Equal(t, "ollama:nomic-embed-text", p.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewFromConfig(ctx, ProviderConfig{Kind: "word2vec"})
		assert.Error(t, err)
	})
}
