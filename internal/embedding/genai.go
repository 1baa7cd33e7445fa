package embedding

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// DefaultGenAIModel is the default Gemini embedding model.
const DefaultGenAIModel = "gemini-embedding-001"

// GenAIConfig configures the Google GenAI provider.
type GenAIConfig struct {
	APIKey    string // API key (falls back to GEMINI_API_KEY)
	Model     string // Embedding model (default: gemini-embedding-001)
	TaskType  string // SEMANTIC_SIMILARITY (default), RETRIEVAL_QUERY, ...
	Dimension int    // Declared vector width (default: 768)
}

// GenAIProvider generates embeddings using Google's Gemini API.
type GenAIProvider struct {
	client    *genai.Client
	model     string
	taskType  string
	dimension int
}

// NewGenAIProvider creates a GenAI-backed provider.
func NewGenAIProvider(ctx context.Context, cfg GenAIConfig) (*GenAIProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGenAIModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIProvider{
		client:    client,
		model:     cfg.Model,
		taskType:  parseTaskType(cfg.TaskType),
		dimension: cfg.Dimension,
	}, nil
}

// parseTaskType maps a configured task type onto the values the API accepts.
func parseTaskType(taskType string) string {
	switch taskType {
	case "RETRIEVAL_QUERY", "RETRIEVAL_DOCUMENT", "CLASSIFICATION", "CLUSTERING":
		return taskType
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

// Name identifies the model, e.g. "genai:gemini-embedding-001".
func (p *GenAIProvider) Name() string {
	return "genai:" + p.model
}

// Dimension returns the declared vector width.
func (p *GenAIProvider) Dimension() int {
	return p.dimension
}

// Embed generates an embedding for a single text.
func (p *GenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return out[0], nil
}

// EmbedBatch uses the native batch support of EmbedContent.
func (p *GenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(p.dimension)
	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		TaskType:             p.taskType,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}

	embeddings := make([]Embedding, len(texts))
	for i, e := range result.Embeddings {
		if i >= len(embeddings) || e == nil || len(e.Values) == 0 {
			continue
		}
		embeddings[i] = Embedding(e.Values)
	}
	return embeddings, nil
}
