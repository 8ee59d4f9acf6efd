package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperchat/internal/core/domain"
)

type orchestratorFixture struct {
	classifier *mockClassifier
	fetcher    *mockFetcher
	ingestor   *mockIngestor
	answerer   *mockAnswerer
	responder  *mockResponder
	orch       *Orchestrator
}

var (
	groundedAnswer = &domain.AnswerResult{
		Answer:    "grounded",
		Sources:   []string{"1706.03762"},
		ToolUsed:  domain.ToolVectorRetrieval,
		Rationale: "from chunks",
	}
	chitchatAnswer = &domain.AnswerResult{
		Answer:    "hello",
		Sources:   []string{},
		ToolUsed:  domain.ToolNone,
		Rationale: RationaleChitchat,
	}
)

func newOrchestratorFixture(t *testing.T, decision *domain.Decision) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		classifier: &mockClassifier{decision: decision},
		fetcher: &mockFetcher{result: &domain.FetchResult{
			Candidates: []domain.Candidate{paper("1706.03762", "Attention Is All You Need")},
			Staged: []domain.StagedArtifact{
				{LocalPath: "/tmp/a.pdf", Candidate: paper("1706.03762", "Attention Is All You Need")},
			},
		}},
		ingestor: &mockIngestor{report: &domain.IngestReport{
			Documents: []string{"1706.03762"},
			Titles:    []string{"Attention Is All You Need"},
			Chunks:    12,
		}},
		answerer:  &mockAnswerer{result: groundedAnswer},
		responder: &mockResponder{result: chitchatAnswer},
	}

	tools, err := NewDefaultToolRegistry(f.fetcher, f.ingestor, f.answerer)
	require.NoError(t, err)
	f.orch = NewOrchestrator(f.classifier, tools, f.responder)
	return f
}

func transcript(msgs ...string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = domain.ChatMessage{Role: role, Content: m}
	}
	return out
}

func TestOrchestrator_GroundedWithoutFetch(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{UseGrounding: true, Request: "What is attention?"})

	result, trace, err := f.orch.RespondWithTrace(context.Background(),
		transcript("hi", "hello", "what is attention?"))

	require.NoError(t, err)
	assert.Same(t, groundedAnswer, result)
	assert.Equal(t, []domain.TurnState{
		domain.StateStart, domain.StateClassified, domain.StateSkippedFetch, domain.StateAnswered, domain.StateDone,
	}, trace.States)
	assert.Equal(t, domain.RouteGrounded, trace.Route)
	assert.Zero(t, f.fetcher.calls)
	assert.Zero(t, f.responder.calls)

	assert.Equal(t, "what is attention?", f.classifier.query)
	assert.Equal(t, transcript("hi", "hello"), f.classifier.history)
	assert.Equal(t, "What is attention?", f.answerer.req.Request)
	assert.Equal(t, "what is attention?", f.answerer.req.Query)
	assert.Equal(t, transcript("hi", "hello"), f.answerer.req.History)
	assert.False(t, f.answerer.req.Fetch.Attempted)
}

func TestOrchestrator_FetchThenGrounded(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{
		Fetch:         true,
		UseGrounding:  true,
		Request:       "Summarise the transformer",
		SearchQueries: []string{"attention is all you need"},
		Categories:    []string{"cs.CL"},
	})

	result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("fetch the transformer paper and summarise it"))

	require.NoError(t, err)
	assert.Same(t, groundedAnswer, result)
	assert.Equal(t, []domain.TurnState{
		domain.StateStart, domain.StateClassified, domain.StateFetched, domain.StateAnswered, domain.StateDone,
	}, trace.States)
	assert.Equal(t, []string{"Attention Is All You Need"}, trace.Papers)
	assert.Equal(t, []string{"attention is all you need"}, f.fetcher.queries)
	assert.Equal(t, []string{"cs.CL"}, f.fetcher.categories)
	assert.Equal(t, 1, f.ingestor.calls)
	assert.True(t, f.answerer.req.Fetch.Attempted)
	assert.Equal(t, []string{"Attention Is All You Need"}, f.answerer.req.Fetch.Papers)
}

func TestOrchestrator_FetchThenConversational(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{
		Fetch:         true,
		SearchQueries: []string{"bert"},
	})

	result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("download BERT"))

	require.NoError(t, err)
	assert.Same(t, chitchatAnswer, result)
	assert.Equal(t, domain.RouteConversational, trace.Route)
	assert.Zero(t, f.answerer.calls)
	assert.True(t, f.responder.req.Fetch.Attempted)
	assert.Equal(t, []string{"Attention Is All You Need"}, f.responder.req.Fetch.Papers)
}

func TestOrchestrator_Chitchat(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{})

	result, err := f.orch.Respond(context.Background(), transcript("hello!"))

	require.NoError(t, err)
	assert.Same(t, chitchatAnswer, result)
	assert.Equal(t, "hello!", f.responder.req.Query)
	assert.False(t, f.responder.req.Fetch.Attempted)
	assert.Zero(t, f.fetcher.calls)
}

func TestOrchestrator_FetchFailuresDegradeToNoPapers(t *testing.T) {
	decision := &domain.Decision{Fetch: true, UseGrounding: true, Request: "q", SearchQueries: []string{"q"}}

	tests := []struct {
		name  string
		setup func(f *orchestratorFixture)
	}{
		{"fetch error", func(f *orchestratorFixture) {
			f.fetcher.err = errors.New("arxiv down")
		}},
		{"ingestion failed", func(f *orchestratorFixture) {
			f.ingestor.report = &domain.IngestReport{Skipped: []string{"/tmp/a.pdf"}}
			f.ingestor.err = fmt.Errorf("%w: nothing usable", domain.ErrIngestionFailed)
		}},
		{"nothing found", func(f *orchestratorFixture) {
			f.fetcher.result = &domain.FetchResult{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, decision)
			tt.setup(f)

			result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("fetch q"))

			require.NoError(t, err)
			assert.Same(t, groundedAnswer, result)
			assert.Contains(t, trace.States, domain.StateFetched)
			assert.Empty(t, trace.Papers)
			assert.True(t, f.answerer.req.Fetch.Attempted)
			assert.Empty(t, f.answerer.req.Fetch.Papers)
		})
	}
}

func TestOrchestrator_ClassificationFailureEndsTurn(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	f.classifier.err = fmt.Errorf("%w: bad reply", domain.ErrInvalidDecision)

	result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("q"))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
	assert.Equal(t, domain.StateFailed, trace.State())
	assert.Zero(t, f.fetcher.calls)
	assert.Zero(t, f.answerer.calls)
	assert.Zero(t, f.responder.calls)
}

func TestOrchestrator_AnswerFailureRepliesNotFound(t *testing.T) {
	tests := []struct {
		name     string
		decision *domain.Decision
		wantText string
	}{
		{
			name:     "no fetch",
			decision: &domain.Decision{UseGrounding: true, Request: "q"},
			wantText: domain.NotFoundAnswer,
		},
		{
			name:     "after fetch",
			decision: &domain.Decision{Fetch: true, UseGrounding: true, Request: "q", SearchQueries: []string{"q"}},
			wantText: `Fetched 1 paper: "Attention Is All You Need". ` + domain.NotFoundAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, tt.decision)
			f.answerer.err = fmt.Errorf("embed: %w", domain.ErrEmbeddingUnavailable)

			result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("q"))

			require.NoError(t, err)
			assert.Equal(t, domain.StateDone, trace.State())
			assert.NotContains(t, trace.States, domain.StateFailed)
			assert.Equal(t, tt.wantText, result.Answer)
			assert.Equal(t, []string{}, result.Sources)
			assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
			assert.Equal(t, rationaleNoRetrieval, result.Rationale)
		})
	}
}

func TestOrchestrator_RetrievalFailureWithRealAnswerer(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.err = errors.New("connection refused")
	answerer := NewAnswerer(embedder, memory.NewStore(), &mockLLM{}, &mockPrompts{}, testSettings(t.TempDir()))
	tools, err := NewDefaultToolRegistry(&mockFetcher{}, &mockIngestor{}, answerer)
	require.NoError(t, err)
	orch := NewOrchestrator(&mockClassifier{decision: &domain.Decision{UseGrounding: true, Request: "what is attention?"}}, tools, &mockResponder{})

	result, trace, err := orch.RespondWithTrace(context.Background(), transcript("what is attention?"))

	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, trace.State())
	assert.Equal(t, domain.NotFoundAnswer, result.Answer)
	assert.Equal(t, rationaleNoRetrieval, result.Rationale)
	assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
}

func TestOrchestrator_AnswerInvalidInputFails(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{UseGrounding: true, Request: "q"})
	f.answerer.err = fmt.Errorf("%w: empty request", domain.ErrInvalidInput)

	result, trace, err := f.orch.RespondWithTrace(context.Background(), transcript("q"))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.StateFailed, trace.State())
}

func TestOrchestrator_InvalidTranscript(t *testing.T) {
	tests := []struct {
		name       string
		transcript []domain.ChatMessage
	}{
		{"empty", nil},
		{"ends with assistant", transcript("hi", "hello")},
		{"blank query", transcript("   ")},
		{"unknown role", []domain.ChatMessage{{Role: "system", Content: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, &domain.Decision{})

			_, trace, err := f.orch.RespondWithTrace(context.Background(), tt.transcript)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, domain.StateFailed, trace.State())
			assert.Empty(t, f.classifier.query)
		})
	}
}

func TestOrchestrator_TurnIDs(t *testing.T) {
	f := newOrchestratorFixture(t, &domain.Decision{})

	_, first, err := f.orch.RespondWithTrace(context.Background(), transcript("one"))
	require.NoError(t, err)
	_, second, err := f.orch.RespondWithTrace(context.Background(), transcript("two"))
	require.NoError(t, err)

	_, parseErr := uuid.Parse(first.ID)
	assert.NoError(t, parseErr)
	assert.NotEqual(t, first.ID, second.ID)
}
