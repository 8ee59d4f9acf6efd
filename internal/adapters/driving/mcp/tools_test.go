package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()
	messages := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "what is attention?"},
	}

	t.Run("returns answer and trace", func(t *testing.T) {
		chat := &mockChatService{
			result: &domain.AnswerResult{
				Answer:    "Attention weighs tokens.",
				Sources:   []string{"1706.03762v7"},
				ToolUsed:  domain.ToolVectorRetrieval,
				Rationale: "Answered from 2 retrieved passages.",
			},
			trace: &domain.TurnTrace{ID: "turn-1", Route: domain.RouteGrounded},
		}
		server := newTestServer(t, &Ports{Chat: chat, Tools: &mockToolRegistry{}})

		_, output, err := server.handleAsk(ctx, nil, AskInput{Messages: messages})

		require.NoError(t, err)
		assert.Equal(t, "Attention weighs tokens.", output.Answer)
		assert.Equal(t, []string{"1706.03762v7"}, output.Sources)
		assert.Equal(t, domain.ToolVectorRetrieval, output.ToolUsed)
		assert.Equal(t, "turn-1", output.TurnID)
		assert.Equal(t, "grounded", output.Route)
		assert.Equal(t, messages, chat.transcript)
	})

	t.Run("nil sources become empty list", func(t *testing.T) {
		chat := &mockChatService{
			result: &domain.AnswerResult{Answer: "Hi!", ToolUsed: domain.ToolNone},
		}
		server := newTestServer(t, &Ports{Chat: chat, Tools: &mockToolRegistry{}})

		_, output, err := server.handleAsk(ctx, nil, AskInput{Messages: messages})

		require.NoError(t, err)
		assert.NotNil(t, output.Sources)
		assert.Empty(t, output.Sources)
		assert.Empty(t, output.TurnID)
	})

	t.Run("returns error on turn failure", func(t *testing.T) {
		chat := &mockChatService{err: domain.ErrInvalidDecision}
		server := newTestServer(t, &Ports{Chat: chat, Tools: &mockToolRegistry{}})

		_, _, err := server.handleAsk(ctx, nil, AskInput{Messages: messages})

		assert.ErrorIs(t, err, domain.ErrInvalidDecision)
	})
}

func TestServer_registryHandler(t *testing.T) {
	ctx := context.Background()

	makeRequest := func(args string) *mcp.CallToolRequest {
		return &mcp.CallToolRequest{
			Params: &mcp.CallToolParamsRaw{
				Name:      "fetch_papers",
				Arguments: json.RawMessage(args),
			},
		}
	}

	t.Run("forwards arguments and returns JSON output", func(t *testing.T) {
		tool := &mockTool{name: "fetch_papers", output: map[string]int{"failed": 0}}
		registry := &mockToolRegistry{tools: []driving.Tool{tool}}
		server := newTestServer(t, &Ports{Chat: &mockChatService{}, Tools: registry})

		result, err := server.registryHandler("fetch_papers")(ctx, makeRequest(`{"q":"attention"}`))

		require.NoError(t, err)
		assert.False(t, result.IsError)
		require.Len(t, result.Content, 1)
		text, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.JSONEq(t, `{"failed":0}`, text.Text)
		assert.JSONEq(t, `{"q":"attention"}`, string(tool.args))
	})

	t.Run("tool failure is reported in result", func(t *testing.T) {
		tool := &mockTool{name: "fetch_papers", err: errors.New("arxiv down")}
		registry := &mockToolRegistry{tools: []driving.Tool{tool}}
		server := newTestServer(t, &Ports{Chat: &mockChatService{}, Tools: registry})

		result, err := server.registryHandler("fetch_papers")(ctx, makeRequest(`{}`))

		require.NoError(t, err)
		assert.True(t, result.IsError)
		text, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "arxiv down", text.Text)
	})

	t.Run("unknown tool is reported in result", func(t *testing.T) {
		server := newTestServer(t, &Ports{Chat: &mockChatService{}, Tools: &mockToolRegistry{}})

		result, err := server.registryHandler("missing")(ctx, makeRequest(`{}`))

		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
