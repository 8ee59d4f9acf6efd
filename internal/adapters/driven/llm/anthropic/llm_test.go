package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "ak-test", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestChat_LiftsSystemAndStripsFence(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, strings.HasPrefix(req.System, "You classify."))
		assert.Contains(t, req.System, jsonInstruction)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.0, *req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"` + "```json\\n{\\\"fetch\\\":true}\\n```" + `"}]}`))
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "You classify."},
		{Role: "user", Content: "fetch LIME"},
	}, driven.ChatOptions{JSON: true})

	require.NoError(t, err)
	assert.Equal(t, `{"fetch":true}`, out)
}

func TestChat_PlainText(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.System)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}]}`))
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`},
		{"overloaded html", http.StatusServiceUnavailable, `overloaded`},
		{"no text", http.StatusOK, `{"content":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.ChatOptions{})
			assert.Error(t, err)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestChat_Overloaded(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(statusOverloaded)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorContains(t, err, "overloaded_error")
}
