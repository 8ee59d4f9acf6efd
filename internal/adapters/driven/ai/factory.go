// Package ai builds the embedding and LLM adapters named in the settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters for one process.
type Services struct {
	Embedding  driven.EmbeddingService
	Classifier driven.LLMService
	Answerer   driven.LLMService
}

// Close releases all services. Safe on a partially built value.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.Classifier != nil {
		s.Classifier.Close()
	}
	if s.Answerer != nil {
		s.Answerer.Close()
	}
}

// NewServices creates the embedding service and both LLM roles.
// With validate set, each service is pinged before it is returned.
func NewServices(ctx context.Context, settings *domain.AppSettings, validate bool) (*Services, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}

	svc := &Services{}
	var err error

	if svc.Embedding, err = CreateEmbeddingService(ctx, &settings.Embedding); err != nil {
		return nil, err
	}
	if svc.Classifier, err = CreateLLMService(&settings.Classifier); err != nil {
		svc.Close()
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if svc.Answerer, err = CreateLLMService(&settings.Answerer); err != nil {
		svc.Close()
		return nil, fmt.Errorf("answerer: %w", err)
	}

	if validate {
		if err := svc.Ping(ctx); err != nil {
			svc.Close()
			return nil, err
		}
	}

	logger.Debug("ai: embedding=%s classifier=%s answerer=%s",
		svc.Embedding.ModelName(), svc.Classifier.ModelName(), svc.Answerer.ModelName())
	return svc, nil
}

// Ping checks every service, joining the failures.
func (s *Services) Ping(ctx context.Context) error {
	var errs []error
	if err := pingWithTimeout(ctx, s.Embedding.Ping); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
	}
	if err := pingWithTimeout(ctx, s.Classifier.Ping); err != nil {
		errs = append(errs, fmt.Errorf("%w: classifier: %w", domain.ErrLLMUnavailable, err))
	}
	if err := pingWithTimeout(ctx, s.Answerer.Ping); err != nil {
		errs = append(errs, fmt.Errorf("%w: answerer: %w", domain.ErrLLMUnavailable, err))
	}
	return errors.Join(errs...)
}

func pingWithTimeout(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx)
}

// CreateEmbeddingService creates the embedding service for the configured provider.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured. Run 'paperchat config set embedding.provider ...'",
			domain.ErrEmbeddingUnavailable, providerOf(settings))
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		return wrapEmbedding(svc, err)

	case domain.AIProviderGemini:
		svc, err := geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		return wrapEmbedding(svc, err)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
}

// CreateLLMService creates the chat service for the configured provider.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		var provider domain.AIProvider
		if settings != nil {
			provider = settings.Provider
		}
		return nil, fmt.Errorf("%w: LLM provider %q is not configured", domain.ErrLLMUnavailable, provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		return wrapLLM(svc, err)

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		return wrapLLM(svc, err)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
}

// wrapEmbedding avoids returning a typed nil inside the interface.
func wrapEmbedding[T driven.EmbeddingService](svc T, err error) (driven.EmbeddingService, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

func wrapLLM[T driven.LLMService](svc T, err error) (driven.LLMService, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

func providerOf(settings *domain.EmbeddingSettings) domain.AIProvider {
	if settings == nil {
		return ""
	}
	return settings.Provider
}
