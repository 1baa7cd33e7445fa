package toolrouter

import (
	"time"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/embedding"
)

// Method identifies the pipeline stage that produced a result.
type Method string

const (
	MethodSkipped  Method = "skipped"
	MethodKeyword  Method = "keyword"
	MethodSemantic Method = "semantic"
	MethodFallback Method = "fallback"
)

// RouteResult is the outcome of routing one input.
type RouteResult struct {
	Tools      []catalog.Tool `json:"tools"`
	Confidence float64        `json:"confidence"`
	Method     Method         `json:"method"`
	ShouldSkip bool           `json:"should_skip"`
	Debug      *DebugInfo     `json:"debug,omitempty"` // Only when EnableDebugInfo is set
}

// ToolNames returns the names of the routed tools in result order.
func (r *RouteResult) ToolNames() []string {
	return catalog.Names(r.Tools)
}

// DebugInfo describes how a result was reached.
type DebugInfo struct {
	RequestID string        `json:"request_id"`
	Input     string        `json:"input"`
	Scores    []ToolScore   `json:"scores"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ToolScore is one tool's score in the stage that returned.
type ToolScore struct {
	ToolName       string  `json:"tool_name"`
	Score          float64 `json:"score"`
	MatchedKeyword string  `json:"matched_keyword,omitempty"`
}

// CacheEntry holds one tool's vectors. KeywordEmbeddings contains a vector
// for each keyword that embedded successfully, so it may be shorter than
// Keywords.
type CacheEntry struct {
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	Embedding         embedding.Embedding   `json:"embedding"`
	Keywords          []string              `json:"keywords"`
	KeywordEmbeddings []embedding.Embedding `json:"keywordEmbeddings"`
}

// CacheRecord is the persisted form of the embedding cache. It is reused
// only when Version, ToolsHash and ProviderName all match.
type CacheRecord struct {
	Version      int                   `json:"version"`
	ToolsHash    string                `json:"toolsHash"`
	ProviderName string                `json:"providerName"`
	Embeddings   map[string]CacheEntry `json:"embeddings"`
}
