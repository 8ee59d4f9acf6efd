package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	result     *domain.AnswerResult
	trace      *domain.TurnTrace
	err        error
	transcript []domain.ChatMessage
}

func (m *mockChatService) Respond(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, error) {
	result, _, err := m.RespondWithTrace(ctx, transcript)
	return result, err
}

func (m *mockChatService) RespondWithTrace(
	_ context.Context,
	transcript []domain.ChatMessage,
) (*domain.AnswerResult, *domain.TurnTrace, error) {
	m.transcript = transcript
	return m.result, m.trace, m.err
}

// mockTool is a mock implementation of driving.Tool.
type mockTool struct {
	name   string
	output any
	err    error
	args   json.RawMessage
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return m.name + " tool" }

func (m *mockTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)
}

func (m *mockTool) Invoke(_ context.Context, args json.RawMessage) (any, error) {
	m.args = args
	return m.output, m.err
}

// mockToolRegistry is a mock implementation of driving.ToolRegistry.
type mockToolRegistry struct {
	tools []driving.Tool
}

func (m *mockToolRegistry) Register(tool driving.Tool) error {
	m.tools = append(m.tools, tool)
	return nil
}

func (m *mockToolRegistry) Lookup(name string) (driving.Tool, error) {
	i := slices.IndexFunc(m.tools, func(t driving.Tool) bool { return t.Name() == name })
	if i < 0 {
		return nil, domain.ErrUnknownTool
	}
	return m.tools[i], nil
}

func (m *mockToolRegistry) Invoke(ctx context.Context, name string, args any) (any, error) {
	tool, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	raw, _ := args.(json.RawMessage)
	return tool.Invoke(ctx, raw)
}

func (m *mockToolRegistry) List() []driving.Tool {
	return m.tools
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	values map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings("/tmp/paperchat")
	return &s, nil
}

func (m *mockSettingsService) Set(_, _ string) error {
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return nil
}

func (m *mockSettingsService) Values() map[string]string {
	return m.values
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}
