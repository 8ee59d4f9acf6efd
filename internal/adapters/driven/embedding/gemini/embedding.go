// Package gemini provides an embedding service adapter using the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 768
)

// Task types sent with each request. Documents and queries are embedded
// asymmetrically so retrieval scores stay comparable.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	APIKey string

	// BaseURL overrides the Gemini API endpoint.
	BaseURL string

	Model      string
	Dimensions int
}

// contentEmbedder is the subset of genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// EmbeddingService generates embeddings with Gemini.
type EmbeddingService struct {
	models     contentEmbedder
	model      string
	dimensions int
}

// NewEmbeddingService creates a Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return newWithEmbedder(client.Models, cfg), nil
}

func newWithEmbedder(models contentEmbedder, cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		models:     models,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed embeds a single query text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.embed(ctx, []string{text}, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds document texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.embed(ctx, texts, TaskRetrievalDocument)
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(s.dimensions)
	result, err := s.models.EmbedContent(ctx, s.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", got, len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding for input %d", i)
		}
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// Dimensions returns the requested output dimensionality.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short probe string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.embed(ctx, []string{"ping"}, TaskRetrievalQuery); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
