package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider kinds accepted by NewFromConfig.
const (
	KindLexical = "lexical"
	KindOllama  = "ollama"
	KindOpenAI  = "openai"
	KindGenAI   = "genai"
	KindAuto    = "auto" // ollama, then openai, then genai, then lexical
	KindNone    = "none"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Kind             string
	Ollama           OllamaConfig
	OpenAI           OpenAIConfig
	GenAI            GenAIConfig
	LexicalDimension int

	// Query cache. Size 0 disables it.
	QueryCacheSize int
	QueryCacheTTL  time.Duration
}

// NewFromConfig builds the configured provider. KindNone returns (nil, nil),
// which the router treats as "semantic matching unavailable".
func NewFromConfig(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	var p Provider

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindNone:
		return nil, nil
	case "", KindLexical:
		p = NewLexicalProvider(cfg.LexicalDimension)
	case KindOllama:
		p = NewOllamaProvider(cfg.Ollama)
	case KindOpenAI:
		p = NewOpenAIProvider(cfg.OpenAI)
	case KindGenAI:
		g, err := NewGenAIProvider(ctx, cfg.GenAI)
		if err != nil {
			return nil, err
		}
		p = g
	case KindAuto:
		chain := []Provider{NewOllamaProvider(cfg.Ollama), NewOpenAIProvider(cfg.OpenAI)}
		if g, err := NewGenAIProvider(ctx, cfg.GenAI); err == nil {
			chain = append(chain, g)
		} else {
			log.Debug().Err(err).Msg("genai backend skipped")
		}
		chain = append(chain, NewLexicalProvider(cfg.LexicalDimension))
		p = NewMultiProvider(chain...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Kind)
	}

	if cfg.QueryCacheSize > 0 {
		p = NewCachedProvider(p, cfg.QueryCacheSize, cfg.QueryCacheTTL)
	}
	return p, nil
}
