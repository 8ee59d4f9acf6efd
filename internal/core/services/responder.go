package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Responder implements the interface.
var _ driving.Responder = (*Responder)(nil)

const (
	RationaleChitchat = "chitchat response"
	RationaleNoPapers = "no papers available"

	cannedGreeting = "Hello! I can answer questions about the research papers in my collection, " +
		"or fetch new papers from arXiv if you name a topic or title."

	converseTemperature = 0.3
	converseMaxTokens   = 256
)

// Responder handles turns that need no grounding. It never reads the collection.
type Responder struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewResponder creates a conversational responder. llm may be nil.
func NewResponder(llm driven.LLMService, prompts driven.PromptStore) *Responder {
	return &Responder{llm: llm, prompts: prompts}
}

// Respond acknowledges a fetch, or makes a short conversational reply.
func (r *Responder) Respond(ctx context.Context, req driving.AnswerRequest) (*domain.AnswerResult, error) {
	result := &domain.AnswerResult{
		Sources:   []string{},
		ToolUsed:  domain.ToolNone,
		Rationale: RationaleChitchat,
	}

	if req.Fetch.Attempted {
		result.Answer = FetchAcknowledgement(req.Fetch.Papers)
		if len(req.Fetch.Papers) == 0 {
			result.Rationale = RationaleNoPapers
		}
		return result, nil
	}

	result.Answer = r.converse(ctx, req)
	return result, nil
}

func (r *Responder) converse(ctx context.Context, req driving.AnswerRequest) string {
	if r.llm == nil {
		return cannedGreeting
	}

	system, err := r.prompts.Load(driven.PromptConverse)
	if err != nil {
		logger.Warn("converse prompt unavailable: %v", err)
		return cannedGreeting
	}

	messages := make([]driven.ChatMessage, 0, len(req.History)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system})
	for _, m := range req.History {
		messages = append(messages, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: req.Query})

	reply, err := r.llm.Chat(ctx, messages, driven.ChatOptions{
		Temperature: converseTemperature,
		MaxTokens:   converseMaxTokens,
	})
	if err != nil {
		logger.Warn("conversational reply failed: %v", err)
		return cannedGreeting
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return cannedGreeting
	}
	return reply
}
