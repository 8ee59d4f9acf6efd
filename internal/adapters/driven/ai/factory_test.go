package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

func TestServices_Close(t *testing.T) {
	t.Run("nil services", func(t *testing.T) {
		var s *Services
		s.Close()
	})

	t.Run("empty services", func(t *testing.T) {
		(&Services{}).Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  bool
	}{
		{"nil settings", nil, true},
		{"unconfigured", &domain.EmbeddingSettings{}, true},
		{"ollama", &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}, false},
		{"openai", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"}, false},
		{"openai without key", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, true},
		{"gemini", &domain.EmbeddingSettings{Provider: domain.AIProviderGemini, APIKey: "k"}, false},
		{"anthropic has no embeddings", &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, true},
		{"unknown provider", &domain.EmbeddingSettings{Provider: "cohere", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.settings)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
					t.Errorf("error %v should wrap ErrEmbeddingUnavailable", err)
				}
				if svc != nil {
					t.Error("expected nil service")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc == nil {
				t.Fatal("expected service, got nil")
			}
			svc.Close()
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantErr   bool
		wantModel string
	}{
		{"nil settings", nil, true, ""},
		{"ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.1:8b"}, false, "llama3.1:8b"},
		{"openai", &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"}, false, "gpt-4o"},
		{"anthropic", &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, false, "claude-3-5-haiku-latest"},
		{"anthropic without key", &domain.LLMSettings{Provider: domain.AIProviderAnthropic}, true, ""},
		{"gemini is embeddings only", &domain.LLMSettings{Provider: domain.AIProviderGemini, APIKey: "k"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			if tt.wantErr {
				if !errors.Is(err, domain.ErrLLMUnavailable) {
					t.Errorf("expected ErrLLMUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := svc.ModelName(); got != tt.wantModel {
				t.Errorf("ModelName() = %q, want %q", got, tt.wantModel)
			}
		})
	}
}

func TestNewServices_WithoutValidation(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())

	svc, err := NewServices(context.Background(), &settings, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	if svc.Classifier.ModelName() != "llama3.1:8b" {
		t.Errorf("classifier model = %q", svc.Classifier.ModelName())
	}
	if svc.Answerer.ModelName() != "llama3.3:70b" {
		t.Errorf("answerer model = %q", svc.Answerer.ModelName())
	}
}

func TestNewServices_Validation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding.BaseURL = server.URL
	settings.Classifier.BaseURL = server.URL
	settings.Answerer.BaseURL = server.URL

	svc, err := NewServices(context.Background(), &settings, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Close()

	server.Close()
	_, err = NewServices(context.Background(), &settings, true)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) || !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Errorf("expected joined unavailable errors, got %v", err)
	}
}

func TestNewServices_BadRole(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Answerer.Provider = domain.AIProviderOpenAI

	_, err := NewServices(context.Background(), &settings, false)
	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Errorf("expected ErrLLMUnavailable, got %v", err)
	}

	if _, err := NewServices(context.Background(), nil, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
