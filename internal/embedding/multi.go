package embedding

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// MultiProvider tries multiple embedding backends in order until one is
// available, e.g. local Ollama first and a cloud API second.
//
// Name and Dimension report the backend that is active at the time of the
// call. A persisted cache records that name, so switching backends later
// invalidates it on the next start.
type MultiProvider struct {
	providers []Provider

	mu     sync.Mutex
	active int
}

// NewMultiProvider creates a fallback chain. Nil entries are ignored.
func NewMultiProvider(providers ...Provider) *MultiProvider {
	var chain []Provider
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}

	m := &MultiProvider{providers: chain, active: -1}
	if p := m.current(); p != nil {
		log.Info().
			Str("backend", p.Name()).
			Int("dimension", p.Dimension()).
			Msg("embedding backend selected")
	} else {
		log.Warn().Msg("no embedding backends available, semantic matching disabled")
	}
	return m
}

// current returns the first available backend, preferring the active one.
func (m *MultiProvider) current() Provider {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active >= 0 && Available(m.providers[m.active]) {
		return m.providers[m.active]
	}

	for i, p := range m.providers {
		if Available(p) {
			if m.active >= 0 && i != m.active {
				log.Info().
					Str("backend", p.Name()).
					Msg("switching embedding backend")
			}
			m.active = i
			return p
		}
	}

	m.active = -1
	return nil
}

// fallback moves past the backend that just failed. It returns nil when no
// later backend is available.
func (m *MultiProvider) fallback(failed Provider) Provider {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	for i, p := range m.providers {
		if p == failed {
			start = i + 1
			break
		}
	}
	for i := start; i < len(m.providers); i++ {
		if Available(m.providers[i]) {
			m.active = i
			return m.providers[i]
		}
	}
	return nil
}

// Name returns the active backend's name, or "none".
func (m *MultiProvider) Name() string {
	if p := m.current(); p != nil {
		return p.Name()
	}
	return "none"
}

// Dimension returns the active backend's dimension, or 0.
func (m *MultiProvider) Dimension() int {
	if p := m.current(); p != nil {
		return p.Dimension()
	}
	return 0
}

// Available reports whether any backend is available.
func (m *MultiProvider) Available() bool {
	return m.current() != nil
}

// Embed uses the active backend and falls back once on failure.
func (m *MultiProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	p := m.current()
	if p == nil {
		return nil, ErrUnavailable
	}

	e, err := p.Embed(ctx, text)
	if err == nil {
		return e, nil
	}
	if next := m.fallback(p); next != nil {
		return next.Embed(ctx, text)
	}
	return nil, err
}
