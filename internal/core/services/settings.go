package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that supply provider credentials.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindProvider
	kindInt
	kindFloat
	kindSecret
)

// field binds a config key to a location in AppSettings.
type field struct {
	kind  fieldKind
	str   func(*domain.AppSettings) *string
	num   func(*domain.AppSettings) *int
	float func(*domain.AppSettings) *float64
}

func stringField(kind fieldKind, f func(*domain.AppSettings) *string) field {
	return field{kind: kind, str: f}
}

func intField(f func(*domain.AppSettings) *int) field {
	return field{kind: kindInt, num: f}
}

func floatField(f func(*domain.AppSettings) *float64) field {
	return field{kind: kindFloat, float: f}
}

// llmFields registers the keys of one LLM role under prefix.
func llmFields(fields map[string]field, prefix string, role func(*domain.AppSettings) *domain.LLMSettings) {
	fields[prefix+".provider"] = stringField(kindProvider, func(s *domain.AppSettings) *string {
		return (*string)(&role(s).Provider)
	})
	fields[prefix+".model"] = stringField(kindString, func(s *domain.AppSettings) *string { return &role(s).Model })
	fields[prefix+".base_url"] = stringField(kindString, func(s *domain.AppSettings) *string { return &role(s).BaseURL })
	fields[prefix+".api_key"] = stringField(kindSecret, func(s *domain.AppSettings) *string { return &role(s).APIKey })
	fields[prefix+".temperature"] = floatField(func(s *domain.AppSettings) *float64 { return &role(s).Temperature })
}

var settingFields = func() map[string]field {
	f := map[string]field{
		"collection.name": stringField(kindString, func(s *domain.AppSettings) *string { return &s.CollectionName }),

		"embedding.provider": stringField(kindProvider, func(s *domain.AppSettings) *string {
			return (*string)(&s.Embedding.Provider)
		}),
		"embedding.model":    stringField(kindString, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
		"embedding.base_url": stringField(kindString, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
		"embedding.api_key":  stringField(kindSecret, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey }),

		"fetch.base_url":            stringField(kindString, func(s *domain.AppSettings) *string { return &s.Fetch.BaseURL }),
		"fetch.field":               stringField(kindString, func(s *domain.AppSettings) *string { return &s.Fetch.Field }),
		"fetch.max_results":         intField(func(s *domain.AppSettings) *int { return &s.Fetch.MaxResults }),
		"fetch.concurrency":         intField(func(s *domain.AppSettings) *int { return &s.Fetch.Concurrency }),
		"fetch.requests_per_second": floatField(func(s *domain.AppSettings) *float64 { return &s.Fetch.RequestsPerSecond }),
		"fetch.burst":               intField(func(s *domain.AppSettings) *int { return &s.Fetch.Burst }),

		"ingest.chunk_size":       intField(func(s *domain.AppSettings) *int { return &s.Ingest.ChunkSize }),
		"ingest.chunk_overlap":    intField(func(s *domain.AppSettings) *int { return &s.Ingest.ChunkOverlap }),
		"ingest.embed_batch_size": intField(func(s *domain.AppSettings) *int { return &s.Ingest.EmbedBatchSize }),
		"ingest.workers":          intField(func(s *domain.AppSettings) *int { return &s.Ingest.Workers }),

		"retrieval.top_k":          intField(func(s *domain.AppSettings) *int { return &s.Retrieval.TopK }),
		"retrieval.min_similarity": floatField(func(s *domain.AppSettings) *float64 { return &s.Retrieval.MinSimilarity }),
	}
	llmFields(f, "llm.classifier", func(s *domain.AppSettings) *domain.LLMSettings { return &s.Classifier })
	llmFields(f, "llm.answerer", func(s *domain.AppSettings) *domain.LLMSettings { return &s.Answerer })
	return f
}()

// SettingsService builds AppSettings from defaults, the config store and
// the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	home        string
}

// NewSettingsService creates a settings service rooted at home.
func NewSettingsService(configStore driven.ConfigStore, home string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		home:        home,
	}
}

// Get returns validated settings. Values missing from the store keep their
// defaults, and empty API keys are filled from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.load()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// Set parses value for key, checks the resulting settings and persists it.
// Nothing is written when the new value would make the settings invalid.
func (s *SettingsService) Set(key, value string) error {
	f, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	typed, err := f.parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	candidate := s.load()
	f.assign(candidate, typed)
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("%s=%s rejected: %w", key, value, err)
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the configuration keys understood by Set.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values renders the effective value of every key. API keys are masked.
func (s *SettingsService) Values() map[string]string {
	settings := s.load()
	out := make(map[string]string, len(settingFields))
	for key, f := range settingFields {
		out[key] = f.format(settings)
	}
	return out
}

func (s *SettingsService) load() *domain.AppSettings {
	settings := domain.DefaultAppSettings(s.home)
	for key, f := range settingFields {
		if _, exists := s.configStore.Get(key); !exists {
			continue
		}
		switch f.kind {
		case kindInt:
			*f.num(&settings) = s.configStore.GetInt(key)
		case kindFloat:
			*f.float(&settings) = s.configStore.GetFloat(key)
		case kindProvider:
			if p := domain.AIProvider(s.configStore.GetString(key)); p.IsValid() {
				*f.str(&settings) = string(p)
			}
		default:
			*f.str(&settings) = s.configStore.GetString(key)
		}
	}

	applyEnvKey(&settings.Embedding.APIKey, settings.Embedding.Provider)
	applyEnvKey(&settings.Classifier.APIKey, settings.Classifier.Provider)
	applyEnvKey(&settings.Answerer.APIKey, settings.Answerer.Provider)
	return &settings
}

func applyEnvKey(apiKey *string, provider domain.AIProvider) {
	if *apiKey != "" {
		return
	}
	switch provider {
	case domain.AIProviderOpenAI:
		*apiKey = os.Getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		*apiKey = os.Getenv(EnvAnthropicKey)
	case domain.AIProviderGemini:
		*apiKey = os.Getenv(EnvGeminiKey)
	}
}

func (f field) parse(value string) (any, error) {
	switch f.kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

func (f field) assign(settings *domain.AppSettings, typed any) {
	switch f.kind {
	case kindInt:
		*f.num(settings) = typed.(int)
	case kindFloat:
		*f.float(settings) = typed.(float64)
	default:
		*f.str(settings) = typed.(string)
	}
}

func (f field) format(settings *domain.AppSettings) string {
	switch f.kind {
	case kindInt:
		return strconv.Itoa(*f.num(settings))
	case kindFloat:
		return strconv.FormatFloat(*f.float(settings), 'g', -1, 64)
	case kindSecret:
		return maskSecret(*f.str(settings))
	default:
		return *f.str(settings)
	}
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "..." + v[len(v)-4:]
}
