package driving

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// ChatService answers one conversational turn.
type ChatService interface {
	// Respond answers the last message of transcript. Only classification
	// failures and invalid transcripts are returned as errors.
	Respond(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, error)

	// RespondWithTrace is Respond plus the state machine trace for the turn.
	RespondWithTrace(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, *domain.TurnTrace, error)
}
