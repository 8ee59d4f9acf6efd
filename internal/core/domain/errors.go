package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no normaliser handles a content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidDecision indicates the classifier returned output that does
	// not satisfy the Decision schema. It is fatal to the turn.
	ErrInvalidDecision = errors.New("invalid classification decision")

	// ErrEmptyExtraction indicates an artefact yielded no usable text.
	ErrEmptyExtraction = errors.New("no text extracted")

	// ErrIngestionFailed indicates no document in a batch contributed chunks.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrUnknownTool indicates a tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolExists indicates a tool name is already registered.
	ErrToolExists = errors.New("tool already registered")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates an embedding does not match the
	// collection's dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
