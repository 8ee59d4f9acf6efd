package domain

import (
	"fmt"
	"path/filepath"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds configuration for one LLM role.
type LLMSettings struct {
	Provider    AIProvider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderGemini {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// FetchSettings configures the external document index.
type FetchSettings struct {
	// BaseURL is the search API endpoint.
	BaseURL string

	// Field is the query field qualifier ("ti", "abs" or "all").
	Field string

	// MaxResults is the number of results requested per search call.
	MaxResults int

	// Concurrency caps concurrent search calls.
	Concurrency int

	// RequestsPerSecond and Burst configure client-side rate limiting.
	RequestsPerSecond float64
	Burst             int
}

// IngestSettings configures chunking and embedding.
type IngestSettings struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	Workers        int
}

// RetrievalSettings configures nearest-neighbour retrieval.
type RetrievalSettings struct {
	TopK          int
	MinSimilarity float64
}

// AppSettings is the complete process configuration. It is built once at
// startup and passed by reference to each component.
type AppSettings struct {
	// HomeDir is the root for data, staging and prompts.
	HomeDir string

	// CollectionName is the persistent vector collection.
	CollectionName string

	Embedding  EmbeddingSettings
	Classifier LLMSettings
	Answerer   LLMSettings
	Fetch      FetchSettings
	Ingest     IngestSettings
	Retrieval  RetrievalSettings
}

// Fixed limits.
const (
	// MaxFetchConcurrency is the hard cap on concurrent search calls.
	MaxFetchConcurrency = 5

	// DefaultCollectionName is the collection used when none is configured.
	DefaultCollectionName = "research_papers"
)

// DefaultAppSettings returns the default configuration rooted at home.
// Provider credentials are left empty; they come from config or environment.
func DefaultAppSettings(home string) AppSettings {
	return AppSettings{
		HomeDir:        home,
		CollectionName: DefaultCollectionName,
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
		},
		Classifier: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "llama3.1:8b",
			Temperature: 0,
		},
		Answerer: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "llama3.3:70b",
			Temperature: 0,
		},
		Fetch: FetchSettings{
			BaseURL:           "https://export.arxiv.org/api/query",
			Field:             "ti",
			MaxResults:        3,
			Concurrency:       MaxFetchConcurrency,
			RequestsPerSecond: 1.0 / 3.0,
			Burst:             1,
		},
		Ingest: IngestSettings{
			ChunkSize:      1024,
			ChunkOverlap:   50,
			EmbedBatchSize: 32,
			Workers:        4,
		},
		Retrieval: RetrievalSettings{
			TopK:          5,
			MinSimilarity: 0.2,
		},
	}
}

// DataDir is where the vector collection database lives.
func (s *AppSettings) DataDir() string {
	return filepath.Join(s.HomeDir, "data")
}

// StagingDir is where downloaded artefacts wait for ingestion.
func (s *AppSettings) StagingDir() string {
	return filepath.Join(s.HomeDir, "staging")
}

// PromptDir holds user-editable prompt templates.
func (s *AppSettings) PromptDir() string {
	return filepath.Join(s.HomeDir, "prompts")
}

// Validate checks the settings for values no component can work with.
func (s *AppSettings) Validate() error {
	if s.CollectionName == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.Fetch.Field != "ti" && s.Fetch.Field != "abs" && s.Fetch.Field != "all" {
		return fmt.Errorf("%w: fetch field must be ti, abs or all, got %q", ErrInvalidInput, s.Fetch.Field)
	}
	if s.Fetch.MaxResults <= 0 {
		return fmt.Errorf("%w: fetch max results must be positive", ErrInvalidInput)
	}
	if s.Fetch.Concurrency <= 0 || s.Fetch.Concurrency > MaxFetchConcurrency {
		return fmt.Errorf("%w: fetch concurrency must be between 1 and %d", ErrInvalidInput, MaxFetchConcurrency)
	}
	if s.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.Ingest.ChunkOverlap < 0 || s.Ingest.ChunkOverlap >= s.Ingest.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	}
	if s.Ingest.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: embed batch size must be positive", ErrInvalidInput)
	}
	if s.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: ingest workers must be positive", ErrInvalidInput)
	}
	if s.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", ErrInvalidInput)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top-k must be positive", ErrInvalidInput)
	}
	return nil
}
