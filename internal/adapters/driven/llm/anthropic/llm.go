// Package anthropic provides an LLM service adapter using the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// jsonInstruction is appended to the system prompt in JSON mode; the API
// has no response_format switch.
const jsonInstruction = "Respond with a single JSON object and nothing else. Do not wrap it in code fences."

// statusOverloaded is returned when the API is temporarily saturated.
const statusOverloaded = 529

// Config configures an LLMService. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService talks to the Anthropic Messages API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []turnMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService validates cfg and fills in defaults.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	return &LLMService{
		client:  &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultTimeout)},
		baseURL: strings.TrimRight(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:  cfg.APIKey,
		model:   cmp.Or(cfg.Model, DefaultModel),
	}, nil
}

// Chat sends the conversation and joins the reply's text blocks. The API
// takes system text as a top-level field, so system messages are moved
// there. In JSON mode the reply is unwrapped from any code fence.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	temperature := opts.Temperature
	payload := messagesRequest{
		Model:       s.model,
		MaxTokens:   cmp.Or(opts.MaxTokens, DefaultMaxTokens),
		Temperature: &temperature,
	}

	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
		} else {
			payload.Messages = append(payload.Messages, turnMessage(m))
		}
	}
	if opts.JSON {
		system = append(system, jsonInstruction)
	}
	payload.System = strings.Join(system, "\n\n")

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("anthropic: encoding request: %w", err)
	}

	var out messagesResponse
	if err := s.call(ctx, http.MethodPost, "/v1/messages", bytes.NewReader(body), &out); err != nil {
		return "", err
	}

	var reply strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return "", errors.New("anthropic: reply has no text content")
	}
	if opts.JSON {
		return StripCodeFence(reply.String()), nil
	}
	return reply.String(), nil
}

// StripCodeFence returns s without a surrounding ``` or ```json fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	rest, fenced := strings.CutPrefix(s, "```")
	if !fenced {
		return s
	}
	// Drop the info string ("json") on the opening line.
	if _, after, ok := strings.Cut(rest, "\n"); ok {
		rest = after
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), "```")
	return strings.TrimSpace(rest)
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/v1/models", http.NoBody, nil)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}

// call sends one authenticated request and decodes a 200 response into out
// when out is non-nil. Rate limiting and overload map to
// domain.ErrRateLimited.
func (s *LLMService) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("anthropic: building request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Type + ": " + env.Error.Message
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests, statusOverloaded:
			return fmt.Errorf("anthropic: %w: %s", domain.ErrRateLimited, msg)
		}
		return fmt.Errorf("anthropic: %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("anthropic: decoding %s response: %w", path, err)
	}
	return nil
}
