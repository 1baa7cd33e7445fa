package toolrouter

import (
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════

// Default configuration values.
const (
	DefaultSimilarityThreshold = 0.25
	DefaultMaxTools            = 10
	DefaultMinInputLength      = 3
	DefaultCacheFileName       = "tool_embeddings_cache.json"
	DefaultDescriptionWeight   = 0.6
	DefaultKeywordWeight       = 0.4
	DefaultEmbedConcurrency    = 4
	DefaultContextWindow       = 4
)

// DefaultGreetingPatterns returns the built-in English and Chinese greetings.
func DefaultGreetingPatterns() []string {
	return []string{
		"hello", "hi", "hey", "hiya", "howdy",
		"good morning", "good afternoon", "good evening", "good night",
		"thanks", "thank you", "thx", "bye", "goodbye", "see you",
		"你好", "您好", "嗨", "哈喽", "早上好", "下午好", "晚上好", "晚安",
		"谢谢", "多谢", "再见", "拜拜",
	}
}

// Config holds router settings. A Router copies it at construction.
type Config struct {
	SimilarityThreshold    float64    `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`       // Minimum blended score for a semantic match, in [0,1]
	MaxTools               int        `mapstructure:"max_tools" yaml:"max_tools"`                             // Upper bound on returned tools for keyword/semantic results (0 = unlimited)
	EnableKeywordMatching  bool       `mapstructure:"enable_keyword_matching" yaml:"enable_keyword_matching"` // Stage 1
	EnableSemanticMatching bool       `mapstructure:"enable_semantic_matching" yaml:"enable_semantic_matching"`
	GreetingPatterns       []string   `mapstructure:"greeting_patterns" yaml:"greeting_patterns"`
	MinInputLength         int        `mapstructure:"min_input_length" yaml:"min_input_length"` // Counted in runes after trimming
	ToolGroups             [][]string `mapstructure:"tool_groups" yaml:"tool_groups,omitempty"`
	EnableDiskCache        bool       `mapstructure:"enable_disk_cache" yaml:"enable_disk_cache"`
	CacheFileName          string     `mapstructure:"cache_file_name" yaml:"cache_file_name"` // Extension selects the encoding (.json, .cbor, optional .zst)
	EnableDebugInfo        bool       `mapstructure:"enable_debug_info" yaml:"enable_debug_info"`

	// Semantic score = DescriptionWeight*descScore + KeywordWeight*maxKeywordScore.
	DescriptionWeight float64 `mapstructure:"description_weight" yaml:"description_weight"`
	KeywordWeight     float64 `mapstructure:"keyword_weight" yaml:"keyword_weight"`

	EmbedConcurrency int `mapstructure:"embed_concurrency" yaml:"embed_concurrency"` // Tools embedded in parallel while building the cache
	ContextWindow    int `mapstructure:"context_window" yaml:"context_window"`       // History lines used by RouteWithContext
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    DefaultSimilarityThreshold,
		MaxTools:               DefaultMaxTools,
		EnableKeywordMatching:  true,
		EnableSemanticMatching: true,
		GreetingPatterns:       DefaultGreetingPatterns(),
		MinInputLength:         DefaultMinInputLength,
		EnableDiskCache:        true,
		CacheFileName:          DefaultCacheFileName,
		DescriptionWeight:      DefaultDescriptionWeight,
		KeywordWeight:          DefaultKeywordWeight,
		EmbedConcurrency:       DefaultEmbedConcurrency,
		ContextWindow:          DefaultContextWindow,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %v", c.SimilarityThreshold)
	}
	if c.MaxTools < 0 {
		return fmt.Errorf("max_tools must be >= 0, got %d", c.MaxTools)
	}
	if c.MinInputLength < 0 {
		return fmt.Errorf("min_input_length must be >= 0, got %d", c.MinInputLength)
	}
	if c.DescriptionWeight < 0 || c.KeywordWeight < 0 {
		return fmt.Errorf("score weights must be >= 0, got %v/%v", c.DescriptionWeight, c.KeywordWeight)
	}
	if c.EmbedConcurrency < 0 {
		return fmt.Errorf("embed_concurrency must be >= 0, got %d", c.EmbedConcurrency)
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must be >= 0, got %d", c.ContextWindow)
	}
	if c.EnableDiskCache && strings.TrimSpace(c.CacheFileName) == "" {
		return fmt.Errorf("cache_file_name is required when the disk cache is enabled")
	}
	return nil
}

// normalized returns a copy that is safe to run with: out-of-range values
// are clamped, unset tuning values take their defaults, greeting patterns
// are trimmed and lowercased, and slices are not shared with the caller.
func (c Config) normalized() Config {
	out := c

	out.SimilarityThreshold = min(max(c.SimilarityThreshold, 0), 1)
	out.MaxTools = max(c.MaxTools, 0)
	out.MinInputLength = max(c.MinInputLength, 0)
	out.DescriptionWeight = max(c.DescriptionWeight, 0)
	out.KeywordWeight = max(c.KeywordWeight, 0)
	if out.DescriptionWeight == 0 && out.KeywordWeight == 0 {
		out.DescriptionWeight = DefaultDescriptionWeight
		out.KeywordWeight = DefaultKeywordWeight
	}
	if out.EmbedConcurrency <= 0 {
		out.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if out.ContextWindow <= 0 {
		out.ContextWindow = DefaultContextWindow
	}
	if strings.TrimSpace(out.CacheFileName) == "" {
		out.CacheFileName = DefaultCacheFileName
	}

	out.GreetingPatterns = make([]string, 0, len(c.GreetingPatterns))
	for _, p := range c.GreetingPatterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out.GreetingPatterns = append(out.GreetingPatterns, p)
		}
	}

	out.ToolGroups = make([][]string, 0, len(c.ToolGroups))
	for _, g := range c.ToolGroups {
		if len(g) > 0 {
			out.ToolGroups = append(out.ToolGroups, append([]string(nil), g...))
		}
	}

	return out
}
