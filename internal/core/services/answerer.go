package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driving.Answerer = (*Answerer)(nil)

const (
	rationaleNoHits      = "No passage in the collection was relevant to the request."
	rationaleNotFound    = "The retrieved passages do not contain the answer."
	rationaleExtractive  = "Answer synthesis failed, so the most relevant passage is quoted verbatim."
	rationaleNoRetrieval = "Retrieval was unavailable, so no passage could be consulted."

	extractiveLabel = "Most relevant excerpt (quoted, not summarised): "
	maxExcerptRunes = 600
	answerMaxTokens = 1024
	noPapersFetched = "I searched for new papers but none were found."
)

// answerPayload is the JSON the answer-synthesis model must return.
type answerPayload struct {
	Found      *bool  `json:"found"`
	Answer     string `json:"answer"`
	Rationale  string `json:"rationale"`
	UsedChunks []int  `json:"used_chunks"`
}

// Answerer answers a request from the vector collection only.
type Answerer struct {
	embedder driven.EmbeddingService
	store    driven.CollectionStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings *domain.AppSettings
}

// NewAnswerer creates an answerer.
func NewAnswerer(
	embedder driven.EmbeddingService,
	store driven.CollectionStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings *domain.AppSettings,
) *Answerer {
	return &Answerer{
		embedder: embedder,
		store:    store,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Answer retrieves the nearest chunks and synthesises a grounded answer.
// With nothing relevant, or when retrieval fails, it returns the not-found
// literal without calling the model. Only an empty request is an error.
func (a *Answerer) Answer(ctx context.Context, req driving.AnswerRequest) (*domain.AnswerResult, error) {
	request := strings.TrimSpace(req.Request)
	if request == "" {
		request = strings.TrimSpace(req.Query)
	}
	if request == "" {
		return nil, fmt.Errorf("%w: empty request", domain.ErrInvalidInput)
	}

	var result *domain.AnswerResult
	hits, err := a.retrieve(ctx, request)
	switch {
	case err != nil:
		logger.Warn("retrieval failed: %v", err)
		result = notFound(rationaleNoRetrieval)
	case len(hits) == 0:
		result = notFound(rationaleNoHits)
	default:
		result = a.synthesise(ctx, request, req.History, hits)
	}

	return acknowledgeFetch(result, req.Fetch), nil
}

// acknowledgeFetch prefixes the fetch outcome when this turn fetched.
func acknowledgeFetch(result *domain.AnswerResult, fetch domain.FetchContext) *domain.AnswerResult {
	if fetch.Attempted {
		result.Answer = FetchAcknowledgement(fetch.Papers) + " " + result.Answer
	}
	return result
}

func (a *Answerer) retrieve(ctx context.Context, request string) ([]domain.VectorHit, error) {
	vector, err := a.embedder.Embed(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	collection, err := a.store.GetOrCreate(ctx, a.settings.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}

	hits, err := collection.Nearest(ctx, vector, a.settings.Retrieval.TopK)
	if err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}

	relevant := hits[:0:0]
	for _, h := range hits {
		if h.Similarity >= a.settings.Retrieval.MinSimilarity {
			relevant = append(relevant, h)
		}
	}
	logger.Debug("retrieval: %d hits, %d above %.2f", len(hits), len(relevant), a.settings.Retrieval.MinSimilarity)
	return relevant, nil
}

func (a *Answerer) synthesise(ctx context.Context, request string, history []domain.ChatMessage, hits []domain.VectorHit) *domain.AnswerResult {
	system, err := a.prompts.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("answer prompt unavailable: %v", err)
		return extractive(hits)
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: renderAnswerInput(request, history, hits)},
	}

	reply, err := a.llm.Chat(ctx, messages, driven.ChatOptions{
		Temperature: 0,
		MaxTokens:   answerMaxTokens,
		JSON:        true,
	})
	if err != nil {
		logger.Warn("answer synthesis failed: %v", err)
		return extractive(hits)
	}

	payload, err := decodeAnswer(reply)
	if err != nil {
		logger.Warn("answer reply rejected: %v", err)
		return extractive(hits)
	}

	if !*payload.Found {
		return notFound(orDefault(payload.Rationale, rationaleNotFound))
	}

	used := selectHits(hits, payload.UsedChunks)
	return &domain.AnswerResult{
		Answer:    strings.TrimSpace(payload.Answer),
		Sources:   sourcesOf(used),
		ToolUsed:  domain.ToolVectorRetrieval,
		Rationale: orDefault(payload.Rationale, fmt.Sprintf("Answered from %d retrieved passages.", len(used))),
	}
}

func decodeAnswer(reply string) (*answerPayload, error) {
	body, ok := extractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var payload answerPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, err
	}
	if payload.Found == nil {
		return nil, fmt.Errorf("missing found field")
	}
	if *payload.Found && strings.TrimSpace(payload.Answer) == "" {
		return nil, fmt.Errorf("found without an answer")
	}
	return &payload, nil
}

func renderAnswerInput(request string, history []domain.ChatMessage, hits []domain.VectorHit) string {
	var b strings.Builder
	b.WriteString("Excerpts:\n")
	for n, h := range hits {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(n + 1))
		b.WriteString("] ")
		if title := h.Record.Metadata[domain.MetaTitle]; title != "" {
			b.WriteString(title)
			b.WriteString(" ")
		}
		b.WriteString("(")
		b.WriteString(h.Record.DocumentID())
		b.WriteString(")\n")
		b.WriteString(strings.TrimSpace(h.Record.Text))
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation history (for resolving references only, not a source):\n")
	b.WriteString(domain.FormatHistory(history))
	b.WriteString("\n\nRequest:\n")
	b.WriteString(request)
	return b.String()
}

// selectHits keeps the 1-based indices the model cited, in rank order.
// An empty or entirely invalid selection falls back to every hit.
func selectHits(hits []domain.VectorHit, used []int) []domain.VectorHit {
	keep := make(map[int]bool, len(used))
	for _, n := range used {
		if n >= 1 && n <= len(hits) {
			keep[n-1] = true
		}
	}
	if len(keep) == 0 {
		return hits
	}

	out := make([]domain.VectorHit, 0, len(keep))
	for n, h := range hits {
		if keep[n] {
			out = append(out, h)
		}
	}
	return out
}

// sourcesOf lists distinct document IDs in rank order.
func sourcesOf(hits []domain.VectorHit) []string {
	seen := make(map[string]bool, len(hits))
	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		id := h.Record.DocumentID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sources = append(sources, id)
	}
	return sources
}

func extractive(hits []domain.VectorHit) *domain.AnswerResult {
	top := hits[0]
	excerpt := strings.Join(strings.Fields(top.Record.Text), " ")
	if utf8.RuneCountInString(excerpt) > maxExcerptRunes {
		excerpt = string([]rune(excerpt)[:maxExcerptRunes]) + "..."
	}
	return &domain.AnswerResult{
		Answer:    extractiveLabel + strconv.Quote(excerpt),
		Sources:   sourcesOf(hits[:1]),
		ToolUsed:  domain.ToolVectorRetrieval,
		Rationale: rationaleExtractive,
	}
}

func notFound(rationale string) *domain.AnswerResult {
	return &domain.AnswerResult{
		Answer:    domain.NotFoundAnswer,
		Sources:   []string{},
		ToolUsed:  domain.ToolVectorRetrieval,
		Rationale: rationale,
	}
}

// FetchAcknowledgement reports the outcome of a fetch in one sentence.
func FetchAcknowledgement(papers []string) string {
	if len(papers) == 0 {
		return noPapersFetched
	}
	quoted := make([]string, len(papers))
	for n, p := range papers {
		quoted[n] = strconv.Quote(p)
	}
	noun := "papers"
	if len(papers) == 1 {
		noun = "paper"
	}
	return fmt.Sprintf("Fetched %d %s: %s.", len(papers), noun, strings.Join(quoted, ", "))
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
