package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.ChatService = (*Orchestrator)(nil)

// Orchestrator runs one turn: classify, optionally fetch, then answer.
type Orchestrator struct {
	classifier driving.Classifier
	tools      driving.ToolRegistry
	responder  driving.Responder
}

// NewOrchestrator creates an orchestrator. The registry must contain
// fetch_papers and answer_question.
func NewOrchestrator(classifier driving.Classifier, tools driving.ToolRegistry, responder driving.Responder) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		tools:      tools,
		responder:  responder,
	}
}

// Respond answers the last message of the transcript.
func (o *Orchestrator) Respond(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, error) {
	result, _, err := o.RespondWithTrace(ctx, transcript)
	return result, err
}

// RespondWithTrace answers the turn and returns its state trace.
func (o *Orchestrator) RespondWithTrace(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, *domain.TurnTrace, error) {
	trace := &domain.TurnTrace{ID: uuid.New().String()}
	trace.Enter(domain.StateStart)
	log := logger.With("turn " + trace.ID[:8])

	query, history, err := domain.SplitTranscript(transcript)
	if err != nil {
		trace.Enter(domain.StateFailed)
		return nil, trace, err
	}
	log.Debug("query %q with %d prior messages", query, len(history))

	decision, err := o.classifier.Classify(ctx, query, history)
	if err != nil {
		trace.Enter(domain.StateFailed)
		log.Error("classification failed: %v", err)
		return nil, trace, fmt.Errorf("classify: %w", err)
	}
	trace.Decision = decision
	trace.Enter(domain.StateClassified)
	log.Info("decision: fetch=%t grounding=%t request=%q", decision.Fetch, decision.UseGrounding, decision.Request)

	fetch := domain.FetchContext{Attempted: decision.Fetch}
	if decision.Fetch {
		fetch.Papers = o.fetch(ctx, log, decision)
		trace.Papers = fetch.Papers
		trace.Enter(domain.StateFetched)
	} else {
		trace.Enter(domain.StateSkippedFetch)
	}

	req := driving.AnswerRequest{
		Query:   query,
		Request: decision.Request,
		History: history,
		Fetch:   fetch,
	}

	var result *domain.AnswerResult
	if decision.UseGrounding {
		trace.Route = domain.RouteGrounded
		result, err = o.answer(ctx, req)
		if err != nil && ctx.Err() == nil && !errors.Is(err, domain.ErrInvalidInput) {
			log.Warn("grounded answer failed, replying not found: %v", err)
			result, err = acknowledgeFetch(notFound(rationaleNoRetrieval), fetch), nil
		}
	} else {
		trace.Route = domain.RouteConversational
		result, err = o.responder.Respond(ctx, req)
	}
	if err != nil {
		trace.Enter(domain.StateFailed)
		log.Error("%s answer failed: %v", trace.Route, err)
		return nil, trace, fmt.Errorf("answer: %w", err)
	}

	trace.Enter(domain.StateAnswered)
	log.Info("answered via %s with %d sources", trace.Route, len(result.Sources))
	trace.Enter(domain.StateDone)
	return result, trace, nil
}

// fetch runs fetch_papers. Any failure degrades to no papers.
func (o *Orchestrator) fetch(ctx context.Context, log logger.Scoped, decision *domain.Decision) []string {
	raw, err := o.tools.Invoke(ctx, ToolFetchPapers, FetchPapersInput{
		Queries:    decision.SearchQueries,
		Categories: decision.Categories,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIngestionFailed) {
			log.Warn("no fetched paper could be ingested: %v", err)
		} else {
			log.Warn("fetch failed: %v", err)
		}
		return []string{}
	}

	out, ok := raw.(*FetchPapersOutput)
	if !ok {
		log.Warn("fetch returned %T", raw)
		return []string{}
	}
	log.Info("fetched %d, ingested %d", len(out.Found), len(out.Papers))
	return out.Papers
}

func (o *Orchestrator) answer(ctx context.Context, req driving.AnswerRequest) (*domain.AnswerResult, error) {
	raw, err := o.tools.Invoke(ctx, ToolAnswerQuestion, AnswerQuestionInput{
		Request: req.Request,
		Query:   req.Query,
		History: req.History,
		Fetched: req.Fetch.Attempted,
		Papers:  req.Fetch.Papers,
	})
	if err != nil {
		return nil, err
	}

	result, ok := raw.(*domain.AnswerResult)
	if !ok {
		return nil, fmt.Errorf("%s returned %T", ToolAnswerQuestion, raw)
	}
	return result, nil
}
