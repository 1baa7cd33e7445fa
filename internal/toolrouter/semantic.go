package toolrouter

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/normanking/toolrouter/internal/embedding"
)

// matchSemantic scores every cached tool against query and returns those at
// or above the threshold, best first, ties broken by name, truncated to
// MaxTools. It returns nothing while the cache is not ready or when the
// query cannot be embedded.
func (r *Router) matchSemantic(ctx context.Context, query string) []ToolScore {
	entries, ready := r.cache.snapshot()
	if !ready || len(entries) == 0 {
		return nil
	}

	q, err := r.provider.Embed(ctx, query)
	if err != nil || len(q) == 0 {
		r.log.Debug().Err(err).Msg("query embedding failed, skipping semantic stage")
		return nil
	}

	var scores []ToolScore
	for _, e := range entries {
		descScore := embedding.Similarity(r.provider, q, e.Embedding)
		kwScore, kwIdx := r.maxKeywordScore(q, e.KeywordEmbeddings)

		score := r.cfg.DescriptionWeight*descScore + r.cfg.KeywordWeight*kwScore
		if score < r.cfg.SimilarityThreshold {
			continue
		}

		ts := ToolScore{ToolName: e.Name, Score: score}
		// Keyword vectors line up with keywords only when none failed.
		if kwIdx >= 0 && len(e.KeywordEmbeddings) == len(e.Keywords) {
			ts.MatchedKeyword = e.Keywords[kwIdx]
		}
		scores = append(scores, ts)
	}

	slices.SortFunc(scores, func(a, b ToolScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ToolName, b.ToolName)
	})

	if r.cfg.MaxTools > 0 && len(scores) > r.cfg.MaxTools {
		scores = scores[:r.cfg.MaxTools]
	}
	return scores
}

// maxKeywordScore returns the best similarity against the keyword vectors
// and its index, or (0, -1) when there are none.
func (r *Router) maxKeywordScore(q embedding.Embedding, vectors []embedding.Embedding) (float64, int) {
	best, idx := math.Inf(-1), -1
	for i, v := range vectors {
		if s := embedding.Similarity(r.provider, q, v); s > best {
			best, idx = s, i
		}
	}
	if idx < 0 {
		return 0, -1
	}
	return best, idx
}

// meanScore is the arithmetic mean of the scores, clamped to [0,1].
func meanScore(scores []ToolScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return min(max(sum/float64(len(scores)), 0), 1)
}
