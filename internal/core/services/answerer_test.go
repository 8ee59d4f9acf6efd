package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

func record(id, doc, text string, emb ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ChunkID:   id,
		Embedding: emb,
		Text:      text,
		Metadata: map[string]string{
			domain.MetaDocumentID: doc,
			domain.MetaTitle:      "Title " + doc,
		},
	}
}

// newTestAnswerer seeds a collection where an "attention" request ranks
// r1 (doc A), r2 (doc A), r3 (doc B) above the threshold and r4 below it.
func newTestAnswerer(t *testing.T, llm *mockLLM) (*Answerer, *mockEmbedder) {
	t.Helper()
	settings := testSettings(t.TempDir())
	store := memory.NewStore()

	coll, err := store.GetOrCreate(context.Background(), settings.CollectionName)
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(context.Background(), []domain.VectorRecord{
		record("r1", "A", "Self-attention relates positions of a sequence.", 1, 0, 0),
		record("r2", "A", "Multi-head attention runs attention in parallel.", 0.9, 0.1, 0),
		record("r3", "B", "Attention over image patches.", 0.8, 0, 0.1),
		record("r4", "C", "Diffusion models denoise.", 0, 1, 0),
	}))

	embedder := newMockEmbedder()
	return NewAnswerer(embedder, store, llm, &mockPrompts{}, settings), embedder
}

func TestAnswerer_Answer_NoRelevantHitsSkipsModel(t *testing.T) {
	llm := &mockLLM{reply: `{"found": true, "answer": "made up", "rationale": "", "used_chunks": [1]}`}
	a, _ := newTestAnswerer(t, llm)

	result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "reinforce learning"})

	require.NoError(t, err)
	assert.Equal(t, domain.NotFoundAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.NotNil(t, result.Sources)
	assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
	assert.NotEmpty(t, result.Rationale)
	assert.Zero(t, llm.callCount())
}

func TestAnswerer_Answer_EmptyCollection(t *testing.T) {
	llm := &mockLLM{}
	settings := testSettings(t.TempDir())
	a := NewAnswerer(newMockEmbedder(), memory.NewStore(), llm, &mockPrompts{}, settings)

	result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "attention"})

	require.NoError(t, err)
	assert.Equal(t, domain.NotFoundAnswer, result.Answer)
	assert.Zero(t, llm.callCount())
}

func TestAnswerer_Answer_UsesCitedChunks(t *testing.T) {
	llm := &mockLLM{reply: `{"found": true, "answer": "Attention weighs tokens.",
		"rationale": "Chunks 1 and 3 define attention.", "used_chunks": [3, 1]}`}
	a, _ := newTestAnswerer(t, llm)

	history := []domain.ChatMessage{{Role: domain.RoleUser, Content: "we talked about RNNs"}}
	result, err := a.Answer(context.Background(), driving.AnswerRequest{
		Query:   "and what is attention?",
		Request: "What is attention?",
		History: history,
	})

	require.NoError(t, err)
	assert.Equal(t, "Attention weighs tokens.", result.Answer)
	assert.Equal(t, []string{"A", "B"}, result.Sources)
	assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
	assert.Equal(t, "Chunks 1 and 3 define attention.", result.Rationale)

	call := llm.lastCall()
	assert.Equal(t, driven.PromptAnswer+" prompt", call.messages[0].Content)
	user := call.messages[1].Content
	assert.Contains(t, user, "[1] Title A (A)\nSelf-attention relates positions of a sequence.")
	assert.Contains(t, user, "[3] Title B (B)")
	assert.NotContains(t, user, "Diffusion models denoise.")
	assert.Contains(t, user, "user: we talked about RNNs")
	assert.True(t, strings.HasSuffix(user, "Request:\nWhat is attention?"))
	assert.True(t, call.opts.JSON)
	assert.Zero(t, call.opts.Temperature)
}

func TestAnswerer_Answer_InvalidSelectionFallsBackToAllHits(t *testing.T) {
	llm := &mockLLM{reply: `{"found": true, "answer": "Yes.", "rationale": "", "used_chunks": [0, 9]}`}
	a, _ := newTestAnswerer(t, llm)

	result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "attention?"})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.Sources)
	assert.NotEmpty(t, result.Rationale)
}

func TestAnswerer_Answer_ModelSaysNotFound(t *testing.T) {
	llm := &mockLLM{reply: `{"found": false, "answer": "", "rationale": "Excerpts discuss other topics.", "used_chunks": []}`}
	a, _ := newTestAnswerer(t, llm)

	result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "attention budget in 2019?"})

	require.NoError(t, err)
	assert.Equal(t, domain.NotFoundAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, "Excerpts discuss other topics.", result.Rationale)
}

func TestAnswerer_Answer_DegradesToExtractive(t *testing.T) {
	tests := []struct {
		name string
		llm  *mockLLM
	}{
		{"not json", &mockLLM{reply: "Attention is great."}},
		{"missing found", &mockLLM{reply: `{"answer": "x"}`}},
		{"found without answer", &mockLLM{reply: `{"found": true, "answer": " "}`}},
		{"model error", &mockLLM{err: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAnswerer(t, tt.llm)

			result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "attention"})

			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(result.Answer, extractiveLabel))
			assert.Contains(t, result.Answer, "Self-attention relates positions of a sequence.")
			assert.Equal(t, []string{"A"}, result.Sources)
			assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
			assert.Equal(t, rationaleExtractive, result.Rationale)
		})
	}
}

func TestAnswerer_Answer_PrefixesFetchAcknowledgement(t *testing.T) {
	t.Run("with papers", func(t *testing.T) {
		llm := &mockLLM{reply: `{"found": true, "answer": "It is a mechanism.", "rationale": "r", "used_chunks": [1]}`}
		a, _ := newTestAnswerer(t, llm)

		result, err := a.Answer(context.Background(), driving.AnswerRequest{
			Request: "attention",
			Fetch:   domain.FetchContext{Attempted: true, Papers: []string{"Attention Is All You Need", "ViT"}},
		})

		require.NoError(t, err)
		assert.Equal(t, `Fetched 2 papers: "Attention Is All You Need", "ViT". It is a mechanism.`, result.Answer)
	})

	t.Run("nothing found", func(t *testing.T) {
		a, _ := newTestAnswerer(t, &mockLLM{})

		result, err := a.Answer(context.Background(), driving.AnswerRequest{
			Request: "reinforce",
			Fetch:   domain.FetchContext{Attempted: true},
		})

		require.NoError(t, err)
		assert.Equal(t, noPapersFetched+" "+domain.NotFoundAnswer, result.Answer)
	})
}

func TestAnswerer_Answer_RequestFallsBackToQuery(t *testing.T) {
	llm := &mockLLM{reply: `{"found": true, "answer": "ok", "rationale": "r", "used_chunks": []}`}
	a, _ := newTestAnswerer(t, llm)

	result, err := a.Answer(context.Background(), driving.AnswerRequest{Query: "attention please"})

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Answer)
	assert.True(t, strings.HasSuffix(llm.lastCall().messages[1].Content, "attention please"))
}

func TestAnswerer_Answer_EmptyRequest(t *testing.T) {
	a, _ := newTestAnswerer(t, &mockLLM{})

	_, err := a.Answer(context.Background(), driving.AnswerRequest{Query: " ", Request: ""})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerer_Answer_RetrievalFailureRepliesNotFound(t *testing.T) {
	tests := []struct {
		name     string
		fetch    domain.FetchContext
		wantText string
	}{
		{"no fetch", domain.FetchContext{}, domain.NotFoundAnswer},
		{"after fetch", domain.FetchContext{Attempted: true, Papers: []string{"ViT"}}, `Fetched 1 paper: "ViT". ` + domain.NotFoundAnswer},
		{"fetch found nothing", domain.FetchContext{Attempted: true}, noPapersFetched + " " + domain.NotFoundAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{}
			a, embedder := newTestAnswerer(t, llm)
			embedder.err = errors.New("down")

			result, err := a.Answer(context.Background(), driving.AnswerRequest{Request: "attention", Fetch: tt.fetch})

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, result.Answer)
			assert.Equal(t, []string{}, result.Sources)
			assert.Equal(t, domain.ToolVectorRetrieval, result.ToolUsed)
			assert.Equal(t, rationaleNoRetrieval, result.Rationale)
			assert.Zero(t, llm.callCount())
		})
	}
}

func TestExtractive_TruncatesLongExcerpts(t *testing.T) {
	long := strings.Repeat("word ", 400)
	result := extractive([]domain.VectorHit{{Record: record("r", "D", long)}})

	assert.True(t, strings.HasSuffix(result.Answer, `..."`))
	assert.Less(t, len(result.Answer), len(long))
	assert.Equal(t, []string{"D"}, result.Sources)
}

func TestFetchAcknowledgement(t *testing.T) {
	tests := []struct {
		name   string
		papers []string
		want   string
	}{
		{"none", nil, "I searched for new papers but none were found."},
		{"one", []string{"BERT"}, `Fetched 1 paper: "BERT".`},
		{"quotes escaped", []string{`The "Best" Paper`, "GPT-3"}, `Fetched 2 papers: "The \"Best\" Paper", "GPT-3".`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FetchAcknowledgement(tt.papers))
		})
	}
}
