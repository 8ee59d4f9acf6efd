// Package openai provides an LLM service adapter using the OpenAI chat completions API.
package openai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures an LLMService. Only APIKey is required; BaseURL may
// point at any gateway that speaks the chat completions API.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService sends chat completions to OpenAI or a compatible gateway.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []wireMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService validates cfg and fills in defaults.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return &LLMService{
		client:  &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultLLMTimeout)},
		baseURL: strings.TrimRight(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:  cfg.APIKey,
		model:   cmp.Or(cfg.Model, DefaultLLMModel),
	}, nil
}

// Chat returns the first choice's content. Temperature is always sent, so
// a zero value means deterministic rather than the server default.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	payload := completionRequest{
		Model:       s.model,
		Messages:    make([]wireMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, wireMessage(m))
	}
	if opts.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: encoding request: %w", err)
	}

	var out completionResponse
	if err := s.call(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/models", http.NoBody, nil)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}

// call sends one authenticated request and decodes a 200 response into out
// when out is non-nil. HTTP 429 is reported as domain.ErrRateLimited.
func (s *LLMService) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("openai: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("openai: %w: %s", domain.ErrRateLimited, msg)
		}
		return fmt.Errorf("openai: %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decoding %s response: %w", path, err)
	}
	return nil
}
