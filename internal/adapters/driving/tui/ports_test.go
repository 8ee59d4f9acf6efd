package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	RespondFunc func(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, *domain.TurnTrace, error)
}

func (m *MockChatService) Respond(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, error) {
	result, _, err := m.RespondWithTrace(ctx, transcript)
	return result, err
}

func (m *MockChatService) RespondWithTrace(
	ctx context.Context, transcript []domain.ChatMessage,
) (*domain.AnswerResult, *domain.TurnTrace, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, transcript)
	}
	return &domain.AnswerResult{Answer: "ok", Sources: []string{}}, &domain.TurnTrace{}, nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	values map[string]string
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings("/tmp/paperchat")
	return &s, nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *MockSettingsService) Keys() []string {
	return []string{"collection.name"}
}

func (m *MockSettingsService) Values() map[string]string {
	return map[string]string{"collection.name": "papers"}
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"missing chat", &Ports{Settings: &MockSettingsService{}}, ErrMissingChatService},
		{"missing settings", &Ports{Chat: &MockChatService{}}, ErrMissingSettingsService},
		{"complete", &Ports{Chat: &MockChatService{}, Settings: &MockSettingsService{}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
