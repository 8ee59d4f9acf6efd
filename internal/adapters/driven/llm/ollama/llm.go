// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.1:8b"
	DefaultLLMTimeout = 300 * time.Second

	maxResponseBytes = 8 << 20
)

// LLMConfig configures an LLMService. The zero value targets a local
// Ollama with the default model.
type LLMConfig struct {
	BaseURL string
	Model   string

	// Timeout is generous because large local models load lazily.
	Timeout time.Duration
}

// LLMService runs chat completions on an Ollama server.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  options       `json:"options"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse doubles as the error body; Ollama reports failures as
// {"error": "..."} with or without a non-200 status.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

// NewLLMService creates a service, filling in defaults.
func NewLLMService(cfg LLMConfig) *LLMService {
	return &LLMService{
		client:  &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultLLMTimeout)},
		baseURL: strings.TrimRight(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		model:   cmp.Or(cfg.Model, DefaultLLMModel),
	}
}

// Chat sends one non-streaming /api/chat request. JSON mode uses the
// server's format switch.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	payload := chatRequest{
		Model:    s.model,
		Messages: make([]chatMessage, len(messages)),
		Options:  options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	}
	for i, m := range messages {
		payload.Messages[i] = chatMessage(m)
	}
	if opts.JSON {
		payload.Format = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: chat with %s: %w", s.model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("ollama: reading response: %w", err)
	}
	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)
	switch {
	case out.Error != "":
		return "", fmt.Errorf("ollama: %s (status %d)", out.Error, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	case decodeErr != nil:
		return "", fmt.Errorf("ollama: decoding response: %w", decodeErr)
	}
	return out.Message.Content, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models via /api/tags.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: building ping request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: not reachable at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
