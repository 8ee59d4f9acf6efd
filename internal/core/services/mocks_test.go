package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// --- Driven port mocks ---

// mockLLM replies from a queue, or with a fixed reply once the queue is empty.
type mockLLM struct {
	mu      sync.Mutex
	replies []string
	reply   string
	err     error
	calls   []mockLLMCall
}

type mockLLMCall struct {
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, mockLLMCall{messages: messages, opts: opts})
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		return r, nil
	}
	return m.reply, nil
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLM) lastCall() mockLLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockEmbedder maps text to a vector by keyword, so tests control similarity.
// Texts containing no keyword get the fallback vector.
type mockEmbedder struct {
	keywords map[string][]float32
	fallback []float32
	err      error
	batches  atomic.Int32
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		keywords: map[string][]float32{
			"attention": {1, 0, 0},
			"diffusion": {0, 1, 0},
			"reinforce": {0, 0, 1},
		},
		fallback: []float32{0.5, 0.5, 0.5},
	}
}

func (m *mockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	for k, v := range m.keywords {
		if strings.Contains(lower, k) {
			return append([]float32(nil), v...)
		}
	}
	return append([]float32(nil), m.fallback...)
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockPrompts returns "<name> prompt" for every known prompt.
type mockPrompts struct {
	err error
}

func (m *mockPrompts) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return name + " prompt", nil
}

func (m *mockPrompts) Reload() {}

// mockPaperIndex answers searches from a map keyed by "text|category".
type mockPaperIndex struct {
	results     map[string][]domain.Candidate
	searchErr   map[string]error
	downloadErr map[string]error
	delay       time.Duration

	mu       sync.Mutex
	searches []domain.SearchQuery

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func searchKey(text, category string) string { return text + "|" + category }

func (m *mockPaperIndex) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Candidate, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.searches = append(m.searches, q)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := searchKey(q.Text, q.Category)
	if err := m.searchErr[key]; err != nil {
		return nil, err
	}
	return m.results[key], nil
}

func (m *mockPaperIndex) Download(_ context.Context, c domain.Candidate) (io.ReadCloser, error) {
	if err := m.downloadErr[c.ID]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader("%PDF " + c.Title)), nil
}

func (m *mockPaperIndex) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

// mockNormalisers turns file content into a document. Content equal to
// "unreadable" fails and "blank" yields no text.
type mockNormalisers struct{}

func (m *mockNormalisers) Register(_ driven.Normaliser) {}

func (m *mockNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	text := string(raw.Content)
	switch text {
	case "unreadable":
		return nil, domain.ErrUnsupportedType
	case "blank":
		text = "   "
	}
	return &driven.NormaliseResult{Document: domain.Document{
		URI:      raw.URI,
		Content:  strings.TrimPrefix(text, "%PDF "),
		Metadata: map[string]any{},
	}}, nil
}

// failingStaging refuses every removal.
type failingStaging struct{}

func (failingStaging) Stage(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", errors.New("read-only")
}
func (failingStaging) Remove(_ string) error { return errors.New("permission denied") }
func (failingStaging) Dir() string           { return "" }

// --- Driving port mocks ---

type mockClassifier struct {
	decision *domain.Decision
	err      error
	query    string
	history  []domain.ChatMessage
}

func (m *mockClassifier) Classify(_ context.Context, query string, history []domain.ChatMessage) (*domain.Decision, error) {
	m.query = query
	m.history = history
	if m.err != nil {
		return nil, m.err
	}
	return m.decision, nil
}

type mockFetcher struct {
	result     *domain.FetchResult
	err        error
	queries    []string
	categories []string
	calls      int
}

func (m *mockFetcher) Fetch(_ context.Context, queries, categories []string) (*domain.FetchResult, error) {
	m.calls++
	m.queries = queries
	m.categories = categories
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockIngestor struct {
	report *domain.IngestReport
	err    error
	staged []domain.StagedArtifact
	calls  int

	mu    sync.Mutex
	files [][]string
}

func (m *mockIngestor) Ingest(_ context.Context, artifacts []domain.StagedArtifact) (*domain.IngestReport, error) {
	m.calls++
	m.staged = artifacts
	return m.report, m.err
}

func (m *mockIngestor) IngestFiles(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, append([]string(nil), paths...))
	return m.report, m.err
}

func (m *mockIngestor) ingestedFiles() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.files...)
}

type mockAnswerer struct {
	result *domain.AnswerResult
	err    error
	req    driving.AnswerRequest
	calls  int
}

func (m *mockAnswerer) Answer(_ context.Context, req driving.AnswerRequest) (*domain.AnswerResult, error) {
	m.calls++
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockResponder struct {
	result *domain.AnswerResult
	req    driving.AnswerRequest
	calls  int
}

func (m *mockResponder) Respond(_ context.Context, req driving.AnswerRequest) (*domain.AnswerResult, error) {
	m.calls++
	m.req = req
	return m.result, nil
}

// testSettings returns defaults rooted at a temp dir with small chunks.
func testSettings(home string) *domain.AppSettings {
	s := domain.DefaultAppSettings(home)
	s.Ingest.ChunkSize = 64
	s.Ingest.ChunkOverlap = 8
	s.Ingest.EmbedBatchSize = 2
	s.Ingest.Workers = 2
	return &s
}
