package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/toolrouter/internal/diskcache"
	"github.com/normanking/toolrouter/internal/embedding"
	"github.com/normanking/toolrouter/internal/logging"
	"github.com/normanking/toolrouter/internal/toolrouter"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOOLROUTER"

// Config is the root configuration.
type Config struct {
	Router    toolrouter.Config `mapstructure:"router" yaml:"router"`
	Embedding EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Catalog   CatalogConfig     `mapstructure:"catalog" yaml:"catalog"`
	Logging   logging.Config    `mapstructure:"logging" yaml:"logging"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// SECTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider         string        `mapstructure:"provider" yaml:"provider"`                   // lexical, ollama, openai, genai, auto, none
	LexicalDimension int           `mapstructure:"lexical_dimension" yaml:"lexical_dimension"` // Hash buckets for the lexical provider
	QueryCacheSize   int           `mapstructure:"query_cache_size" yaml:"query_cache_size"`   // Cached query vectors (0 disables)
	QueryCacheTTL    time.Duration `mapstructure:"query_cache_ttl" yaml:"query_cache_ttl"`

	Ollama OllamaConfig `mapstructure:"ollama" yaml:"ollama"`
	OpenAI OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	GenAI  GenAIConfig  `mapstructure:"genai" yaml:"genai"`
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	Model     string        `mapstructure:"model" yaml:"model"`
	Dimension int           `mapstructure:"dimension" yaml:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OpenAIConfig configures the OpenAI backend. An empty key falls back to
// OPENAI_API_KEY.
type OpenAIConfig struct {
	APIKey            string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Model             string  `mapstructure:"model" yaml:"model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// GenAIConfig configures the Gemini backend. An empty key falls back to
// GEMINI_API_KEY.
type GenAIConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model     string `mapstructure:"model" yaml:"model"`
	TaskType  string `mapstructure:"task_type" yaml:"task_type"`
	Dimension int    `mapstructure:"dimension" yaml:"dimension"`
}

// CacheConfig says where tool embeddings are persisted.
type CacheConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // file or sqlite
	Dir     string `mapstructure:"dir" yaml:"dir"`         // Empty means the user cache directory
}

// CatalogConfig locates the tool catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// DEFAULTS
// ═══════════════════════════════════════════════════════════════════════════════

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Router: toolrouter.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider:         embedding.KindLexical,
			LexicalDimension: 256,
			QueryCacheSize:   1000,
			QueryCacheTTL:    time.Hour,
			Ollama: OllamaConfig{
				Host:      "http://127.0.0.1:11434",
				Model:     "nomic-embed-text",
				Dimension: 768,
				Timeout:   30 * time.Second,
			},
			OpenAI: OpenAIConfig{
				BaseURL:           "https://api.openai.com/v1",
				Model:             "text-embedding-3-small",
				RequestsPerSecond: 5,
			},
			GenAI: GenAIConfig{
				Model:     "gemini-embedding-001",
				TaskType:  "SEMANTIC_SIMILARITY",
				Dimension: 768,
			},
		},
		Cache: CacheConfig{
			Backend: BackendFile,
		},
		Catalog: CatalogConfig{
			Path: "~/.toolrouter/tools.yaml",
		},
		Logging: logging.DefaultConfig(),
	}
}

// DefaultPath returns ~/.toolrouter/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".toolrouter", "config.yaml"), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOAD / SAVE
// ═══════════════════════════════════════════════════════════════════════════════

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, creating the file with
// defaults when it does not exist. Environment overrides are applied on top.
func LoadFromPath(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets are omitted from the file, so AutomaticEnv alone never sees them.
	_ = v.BindEnv("embedding.openai.api_key")
	_ = v.BindEnv("embedding.genai.api_key")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Keys absent from the file keep their defaults; lists from the file
	// replace the default lists instead of merging into them.
	cfg := Default()
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.ZeroFields = true }); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Catalog.Path = expandPath(cfg.Catalog.Path)
	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return cfg, nil
}

// SaveToPath writes cfg to path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Router.Validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedding.KindLexical, embedding.KindOllama, embedding.KindOpenAI,
		embedding.KindGenAI, embedding.KindAuto, embedding.KindNone:
	default:
		return fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider)
	}
	if c.Embedding.QueryCacheSize < 0 {
		return fmt.Errorf("embedding.query_cache_size must be >= 0")
	}

	switch strings.ToLower(c.Cache.Backend) {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ═══════════════════════════════════════════════════════════════════════════════
// WIRING
// ═══════════════════════════════════════════════════════════════════════════════

// ProviderConfig converts the embedding section for embedding.NewFromConfig.
func (e EmbeddingConfig) ProviderConfig() embedding.ProviderConfig {
	return embedding.ProviderConfig{
		Kind: e.Provider,
		Ollama: embedding.OllamaConfig{
			Host:      e.Ollama.Host,
			Model:     e.Ollama.Model,
			Dimension: e.Ollama.Dimension,
			Timeout:   e.Ollama.Timeout,
		},
		OpenAI: embedding.OpenAIConfig{
			APIKey:            e.OpenAI.APIKey,
			BaseURL:           e.OpenAI.BaseURL,
			Model:             e.OpenAI.Model,
			RequestsPerSecond: e.OpenAI.RequestsPerSecond,
		},
		GenAI: embedding.GenAIConfig{
			APIKey:    e.GenAI.APIKey,
			Model:     e.GenAI.Model,
			TaskType:  e.GenAI.TaskType,
			Dimension: e.GenAI.Dimension,
		},
		LexicalDimension: e.LexicalDimension,
		QueryCacheSize:   e.QueryCacheSize,
		QueryCacheTTL:    e.QueryCacheTTL,
	}
}

// StoreCloser is a diskcache.Store that holds resources.
type StoreCloser interface {
	diskcache.Store
	Close() error
}

type fileStoreCloser struct{ *diskcache.FileStore }

func (fileStoreCloser) Close() error { return nil }

// OpenStore opens the configured cache backend.
func (c CacheConfig) OpenStore() (StoreCloser, error) {
	switch strings.ToLower(c.Backend) {
	case "", BackendFile:
		return fileStoreCloser{diskcache.NewFileStore(c.Dir)}, nil
	case BackendSQLite:
		path := ""
		if c.Dir != "" {
			path = filepath.Join(c.Dir, diskcache.DefaultSQLiteFile)
		}
		store, err := diskcache.OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}
