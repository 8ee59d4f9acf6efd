package driven

// PromptStore provides access to LLM prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptClassify is the system prompt for turn classification.
	// It has no format placeholders.
	PromptClassify = "classify"

	// PromptAnswer is the system prompt for grounded answer synthesis.
	// It has no format placeholders.
	PromptAnswer = "answer"

	// PromptConverse is the system prompt for conversational replies.
	// It has no format placeholders.
	PromptConverse = "converse"
)
