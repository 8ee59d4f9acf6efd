package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Classifier implements the interface.
var _ driving.Classifier = (*Classifier)(nil)

// decisionSchema is the structured-output contract for the classification model.
var decisionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "fetch": {"type": "boolean"},
    "use_grounding": {"type": "boolean"},
    "request": {"type": "string"},
    "search_queries": {"type": "array", "items": {"type": "string"}, "maxItems": 5},
    "categories": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["fetch", "use_grounding", "request", "search_queries", "categories"],
  "additionalProperties": false
}`)

// fetchIntentPrefixes are stripped from the start of a request, longest first.
var fetchIntentPrefixes = []string{
	"please fetch papers about",
	"please fetch papers on",
	"search for papers about",
	"search for papers on",
	"download papers about",
	"download papers on",
	"fetch papers about",
	"fetch papers on",
	"find papers about",
	"find papers on",
	"get papers about",
	"get papers on",
	"download the paper",
	"fetch the paper",
	"download paper",
	"fetch paper",
	"download",
	"fetch",
}

// Classifier turns a conversational turn into a validated Decision.
type Classifier struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	schema  *jsonschema.Resolved
}

// NewClassifier creates a classifier backed by the given model.
func NewClassifier(llm driven.LLMService, prompts driven.PromptStore) (*Classifier, error) {
	schema, err := resolveSchema(decisionSchema)
	if err != nil {
		return nil, fmt.Errorf("decision schema: %w", err)
	}
	return &Classifier{llm: llm, prompts: prompts, schema: schema}, nil
}

// Classify makes one JSON-mode call and validates the reply strictly.
func (c *Classifier) Classify(ctx context.Context, query string, history []domain.ChatMessage) (*domain.Decision, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	system, err := c.prompts.Load(driven.PromptClassify)
	if err != nil {
		return nil, fmt.Errorf("load classify prompt: %w", err)
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: renderClassifyInput(query, history)},
	}

	reply, err := c.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: 0, JSON: true})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("classify: %w", ctx.Err())
		}
		return nil, fmt.Errorf("classify: %w: %w", domain.ErrLLMUnavailable, err)
	}

	decision, err := c.decode(reply)
	if err != nil {
		logger.Debug("classifier reply rejected: %v\n%s", err, reply)
		return nil, err
	}
	return decision, nil
}

func (c *Classifier) decode(reply string) (*domain.Decision, error) {
	body, ok := extractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("%w: reply contains no JSON object", domain.ErrInvalidDecision)
	}

	if err := validateJSON(c.schema, json.RawMessage(body)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDecision, err)
	}

	var decision domain.Decision
	if err := json.Unmarshal([]byte(body), &decision); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDecision, err)
	}

	decision.Request = stripFetchIntent(strings.TrimSpace(decision.Request))
	for i := range decision.SearchQueries {
		decision.SearchQueries[i] = strings.TrimSpace(decision.SearchQueries[i])
	}
	for i := range decision.Categories {
		decision.Categories[i] = strings.TrimSpace(decision.Categories[i])
	}

	if err := decision.Validate(); err != nil {
		return nil, err
	}
	return &decision, nil
}

func renderClassifyInput(query string, history []domain.ChatMessage) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(domain.FormatHistory(history))
	b.WriteString("\n\nLatest user message:\n")
	b.WriteString(query)
	return b.String()
}

// politeLeads may precede a fetch instruction and are stripped with it.
var politeLeads = []string{"can you", "could you", "would you", "will you", "please"}

// stripFetchIntent removes a leading fetch instruction such as
// "fetch papers on" so that only the information need remains.
// A request that is nothing but the instruction is returned unchanged,
// and so is one whose polite lead is not followed by an instruction.
func stripFetchIntent(request string) string {
	body := trimPoliteLeads(request)
	for _, prefix := range fetchIntentPrefixes {
		if len(body) < len(prefix) || !strings.EqualFold(body[:len(prefix)], prefix) {
			continue
		}
		rest := body[len(prefix):]
		if rest != "" && !strings.ContainsRune(" :,", rune(rest[0])) {
			continue
		}
		rest = strings.TrimLeft(rest, " :,")
		rest = trimLeadingWord(rest, "and")
		if rest == "" {
			return request
		}
		return rest
	}
	return request
}

// trimPoliteLeads drops any run of polite leads, e.g. "Could you please".
func trimPoliteLeads(s string) string {
	for {
		before := s
		for _, lead := range politeLeads {
			s = trimLeadingWord(s, lead)
		}
		if s == before {
			return s
		}
	}
}

func trimLeadingWord(s, word string) string {
	if len(s) > len(word) && strings.EqualFold(s[:len(word)], word) && strings.ContainsRune(" ,", rune(s[len(word)])) {
		return strings.TrimLeft(s[len(word):], " ,")
	}
	return s
}
