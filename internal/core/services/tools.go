package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ensure ToolRegistry implements the interface.
var _ driving.ToolRegistry = (*ToolRegistry)(nil)

// Built-in tool names.
const (
	ToolFetchPapers    = "fetch_papers"
	ToolAnswerQuestion = "answer_question"
)

type registeredTool struct {
	tool   driving.Tool
	schema *jsonschema.Resolved
}

// ToolRegistry holds tools by name and validates arguments before invoking them.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]registeredTool)}
}

// NewDefaultToolRegistry registers fetch_papers and answer_question.
func NewDefaultToolRegistry(fetcher driving.Fetcher, ingestor driving.Ingestor, answerer driving.Answerer) (*ToolRegistry, error) {
	r := NewToolRegistry()
	for _, t := range []driving.Tool{
		NewFetchPapersTool(fetcher, ingestor),
		NewAnswerQuestionTool(answerer),
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool after resolving its input schema.
func (r *ToolRegistry) Register(tool driving.Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", domain.ErrInvalidInput)
	}

	schema, err := resolveSchema(tool.InputSchema())
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrToolExists, name)
	}
	r.tools[name] = registeredTool{tool: tool, schema: schema}
	return nil
}

// Lookup returns the named tool.
func (r *ToolRegistry) Lookup(name string) (driving.Tool, error) {
	entry, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	return entry.tool, nil
}

// Invoke validates args against the tool's schema and runs it. args may be
// raw JSON or any value that marshals to a JSON object.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args any) (any, error) {
	entry, err := r.entry(name)
	if err != nil {
		return nil, err
	}

	raw, err := toRawJSON(args)
	if err != nil {
		return nil, fmt.Errorf("%w: tool %s: %w", domain.ErrInvalidInput, name, err)
	}
	if err := validateJSON(entry.schema, raw); err != nil {
		return nil, fmt.Errorf("%w: tool %s: %w", domain.ErrInvalidInput, name, err)
	}

	return entry.tool.Invoke(ctx, raw)
}

// List returns all tools sorted by name.
func (r *ToolRegistry) List() []driving.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]driving.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

func (r *ToolRegistry) entry(name string) (registeredTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return registeredTool{}, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return e, nil
}

func toRawJSON(args any) (json.RawMessage, error) {
	switch v := args.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		return v, nil
	case []byte:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}

// FetchPapersInput is the argument object of fetch_papers.
type FetchPapersInput struct {
	Queries    []string `json:"queries"`
	Categories []string `json:"categories,omitempty"`
}

// FetchPapersOutput reports what was found and what made it into the collection.
type FetchPapersOutput struct {
	Found  []string             `json:"found"`
	Papers []string             `json:"papers"`
	Failed int                  `json:"failed"`
	Report *domain.IngestReport `json:"report,omitempty"`
}

var fetchPapersSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "queries": {
      "type": "array",
      "items": {"type": "string", "minLength": 1},
      "minItems": 1,
      "maxItems": 5
    },
    "categories": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["queries"],
  "additionalProperties": false
}`)

// FetchPapersTool searches arXiv, stages the PDFs and ingests them.
type FetchPapersTool struct {
	fetcher  driving.Fetcher
	ingestor driving.Ingestor
}

// NewFetchPapersTool creates the fetch_papers tool.
func NewFetchPapersTool(fetcher driving.Fetcher, ingestor driving.Ingestor) *FetchPapersTool {
	return &FetchPapersTool{fetcher: fetcher, ingestor: ingestor}
}

func (t *FetchPapersTool) Name() string { return ToolFetchPapers }

func (t *FetchPapersTool) Description() string {
	return "Search arXiv for papers by title, download their PDFs and add them to the collection."
}

func (t *FetchPapersTool) InputSchema() json.RawMessage { return fetchPapersSchema }

// Invoke returns an ingestion error alongside the partial output.
func (t *FetchPapersTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in FetchPapersInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	result, err := t.fetcher.Fetch(ctx, in.Queries, in.Categories)
	if err != nil {
		return nil, err
	}

	out := &FetchPapersOutput{
		Found:  result.Titles(),
		Papers: []string{},
		Failed: len(result.Failures),
	}
	if len(result.Staged) == 0 {
		return out, nil
	}

	report, err := t.ingestor.Ingest(ctx, result.Staged)
	out.Report = report
	if err != nil {
		return out, err
	}
	out.Papers = append(out.Papers, report.Titles...)
	return out, nil
}

// AnswerQuestionInput is the argument object of answer_question.
type AnswerQuestionInput struct {
	Request string               `json:"request"`
	Query   string               `json:"query,omitempty"`
	History []domain.ChatMessage `json:"history,omitempty"`
	Fetched bool                 `json:"fetched,omitempty"`
	Papers  []string             `json:"papers,omitempty"`
}

var answerQuestionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "request": {"type": "string", "minLength": 1},
    "query": {"type": "string"},
    "history": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "role": {"type": "string", "enum": ["user", "assistant"]},
          "content": {"type": "string"}
        },
        "required": ["role", "content"]
      }
    },
    "fetched": {"type": "boolean"},
    "papers": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["request"],
  "additionalProperties": false
}`)

// AnswerQuestionTool answers a request from the collection.
type AnswerQuestionTool struct {
	answerer driving.Answerer
}

// NewAnswerQuestionTool creates the answer_question tool.
func NewAnswerQuestionTool(answerer driving.Answerer) *AnswerQuestionTool {
	return &AnswerQuestionTool{answerer: answerer}
}

func (t *AnswerQuestionTool) Name() string { return ToolAnswerQuestion }

func (t *AnswerQuestionTool) Description() string {
	return "Answer a question using only the papers already in the collection."
}

func (t *AnswerQuestionTool) InputSchema() json.RawMessage { return answerQuestionSchema }

func (t *AnswerQuestionTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in AnswerQuestionInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return t.answerer.Answer(ctx, driving.AnswerRequest{
		Query:   in.Query,
		Request: in.Request,
		History: in.History,
		Fetch: domain.FetchContext{
			Attempted: in.Fetched,
			Papers:    in.Papers,
		},
	})
}
