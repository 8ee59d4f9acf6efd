package domain

// NotFoundAnswer is returned when retrieval yields no relevant context.
const NotFoundAnswer = "The knowledge source does not contain the required information."

// Values reported in AnswerResult.ToolUsed.
const (
	ToolVectorRetrieval = "vector_retrieval"
	ToolNone            = "none"
)

// AnswerResult is the terminal artefact of a turn.
type AnswerResult struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	ToolUsed  string   `json:"tool_used"`
	Rationale string   `json:"rationale"`
}

// FetchContext describes fetch activity that happened earlier in the turn.
type FetchContext struct {
	// Attempted is true when the Decision requested a fetch.
	Attempted bool

	// Papers are the titles of papers ingested during this turn.
	Papers []string
}
