package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// OLLAMA PROVIDER
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://127.0.0.1:11434"

	// DefaultOllamaModel is the default local embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// nomic-embed-text produces 768-dimensional vectors.
	defaultOllamaDimension = 768
)

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	Host          string        // Ollama API host (default: http://127.0.0.1:11434)
	Model         string        // Embedding model (default: nomic-embed-text)
	Dimension     int           // Declared vector width (default: 768)
	Timeout       time.Duration // Per-request timeout (default: 30s)
	MaxRetries    int           // Retries on transient failures (default: 1)
	RetryDelay    time.Duration // Delay between retries (default: 2s)
	CheckInterval time.Duration // How long a backend stays marked down (default: 1m)
}

// OllamaProvider generates embeddings using a local Ollama server.
type OllamaProvider struct {
	host          string
	model         string
	dimension     int
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	checkInterval time.Duration

	mu        sync.RWMutex
	available bool
	downSince time.Time
}

// NewOllamaProvider creates an Ollama-backed provider. No network traffic
// happens until the first Embed call.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = defaultOllamaDimension
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}

	return &OllamaProvider{
		host:      strings.TrimRight(cfg.Host, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout, // allows for model loading
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		},
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		checkInterval: cfg.CheckInterval,
		available:     true,
	}
}

// Name identifies the model, e.g. "ollama:nomic-embed-text".
func (p *OllamaProvider) Name() string {
	return "ollama:" + p.model
}

// Dimension returns the declared vector width.
func (p *OllamaProvider) Dimension() int {
	return p.dimension
}

// Available is false for CheckInterval after a connection failure.
func (p *OllamaProvider) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available || time.Since(p.downSince) > p.checkInterval
}

func (p *OllamaProvider) setAvailable(available bool) {
	p.mu.Lock()
	p.available = available
	if !available {
		p.downSince = time.Now()
	}
	p.mu.Unlock()
}

// Embed generates an embedding, retrying transient failures.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("retrying ollama embedding")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(p.retryDelay):
			}
		}

		embedding, err := p.doEmbedRequest(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	return nil, lastErr
}

// doEmbedRequest performs the HTTP request to Ollama.
func (p *OllamaProvider) doEmbedRequest(ctx context.Context, text string) (Embedding, error) {
	body, err := json.Marshal(map[string]any{
		"model":  p.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.setAvailable(false)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	p.setAvailable(true)

	embedding := make(Embedding, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF")
}
