package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// OpenAI embedding models and their dimensions.
const (
	OpenAIEmbeddingModelSmall = "text-embedding-3-small" // 1536 dims, cheaper
	OpenAIEmbeddingModelLarge = "text-embedding-3-large" // 3072 dims, better quality

	OpenAISmallDimension = 1536
	OpenAILargeDimension = 3072

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey            string        // API key (falls back to OPENAI_API_KEY)
	BaseURL           string        // API base URL (default: https://api.openai.com/v1)
	Model             string        // Embedding model (default: text-embedding-3-small)
	Timeout           time.Duration // HTTP request timeout (default: 30s)
	RequestsPerSecond float64       // Client-side rate limit (default: 5, <0 disables)
	QuotaCooldown     time.Duration // How long to back off after a 429 (default: 1h)
}

// OpenAIProvider generates embeddings using the OpenAI embeddings API.
type OpenAIProvider struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	limiter   *rate.Limiter
	cooldown  time.Duration

	mu             sync.RWMutex
	quotaResetTime time.Time
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = OpenAIEmbeddingModelSmall
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.QuotaCooldown == 0 {
		cfg.QuotaCooldown = time.Hour
	}

	dimension := OpenAISmallDimension
	if cfg.Model == OpenAIEmbeddingModelLarge {
		dimension = OpenAILargeDimension
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &OpenAIProvider{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: dimension,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		cooldown:  cfg.QuotaCooldown,
	}
}

// Name identifies the model, e.g. "openai:text-embedding-3-small".
func (p *OpenAIProvider) Name() string {
	return "openai:" + p.model
}

// Dimension returns the declared vector width.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Available is false without an API key or while a quota cooldown is active.
func (p *OpenAIProvider) Available() bool {
	if p.apiKey == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Now().After(p.quotaResetTime)
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one request.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		// 429s are billing or limit problems; retrying immediately will not help.
		if resp.StatusCode == http.StatusTooManyRequests {
			p.mu.Lock()
			p.quotaResetTime = time.Now().Add(p.cooldown)
			p.mu.Unlock()
			log.Warn().
				Dur("cooldown", p.cooldown).
				Msg("openai embedding quota exceeded")
			return nil, fmt.Errorf("openai quota exceeded (status 429): %s", errResp.Error.Message)
		}

		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, errResp.Error.Message)
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]Embedding, len(texts))
	for _, item := range result.Data {
		if item.Index < 0 || item.Index >= len(embeddings) || len(item.Embedding) == 0 {
			continue
		}
		embedding := make(Embedding, len(item.Embedding))
		for i, v := range item.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[item.Index] = embedding
	}

	return embeddings, nil
}
