package driven

import "context"

// LLMService provides language model completions.
//
// Implementations include:
//   - OpenAI and compatible endpoints
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message sent to the model.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks the provider to constrain output to a single JSON object.
	// Providers without a native JSON mode rely on the prompt.
	JSON bool
}
