// Package embedding provides text embedding providers and the vector math the
// router needs to compare them.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VECTORS
// ═══════════════════════════════════════════════════════════════════════════════

// Embedding is a fixed-dimension vector representation of text.
type Embedding []float32

// Normalize returns a unit-length copy. Zero and empty vectors are returned unchanged.
func (e Embedding) Normalize() Embedding {
	if len(e) == 0 {
		return e
	}

	var norm float64
	for _, v := range e {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return e
	}

	norm = math.Sqrt(norm)
	result := make(Embedding, len(e))
	for i, v := range e {
		result[i] = float32(float64(v) / norm)
	}
	return result
}

// CosineSimilarity returns dot(a, b) / (|a| |b|). It is 0 when either vector
// is empty or zero-norm, or when the dimensions differ.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROVIDER INTERFACE
// ═══════════════════════════════════════════════════════════════════════════════

// ErrUnavailable is returned by providers whose backend cannot be reached.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider turns text into embeddings.
//
// Name must be stable for a given model and configuration: it is recorded in
// persisted caches and a change invalidates them. An error from Embed signals
// that this one text could not be embedded; callers treat it as "no vector".
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) (Embedding, error)
}

// BatchEmbedder is implemented by providers with a native batch endpoint.
// The returned slice is parallel to texts; a nil entry marks a failure.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// Availability is implemented by providers that can report backend health.
type Availability interface {
	Available() bool
}

// Similarer is implemented by providers that define their own similarity.
type Similarer interface {
	Similarity(a, b Embedding) float64
}

// EmbedAll embeds each text, returning a slice parallel to texts with nil
// entries for texts that failed. Batch-capable providers get one call; if
// that call fails as a whole the texts are retried one at a time.
func EmbedAll(ctx context.Context, p Provider, texts []string) []Embedding {
	if len(texts) == 0 {
		return nil
	}

	if b, ok := p.(BatchEmbedder); ok {
		out, err := b.EmbedBatch(ctx, texts)
		if err == nil && len(out) == len(texts) {
			return out
		}
	}

	out := make([]Embedding, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		e, err := p.Embed(ctx, text)
		if err != nil || len(e) == 0 {
			continue
		}
		out[i] = e
	}
	return out
}

// Similarity compares two embeddings using p's own measure when it has one,
// otherwise CosineSimilarity.
func Similarity(p Provider, a, b Embedding) float64 {
	if s, ok := p.(Similarer); ok {
		return s.Similarity(a, b)
	}
	return CosineSimilarity(a, b)
}

// Available reports whether p is usable. Providers that do not implement
// Availability are assumed available.
func Available(p Provider) bool {
	if p == nil {
		return false
	}
	if a, ok := p.(Availability); ok {
		return a.Available()
	}
	return true
}
