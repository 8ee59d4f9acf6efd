// Package domain defines the core entities for paperchat.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - ChatMessage: one entry of a conversation transcript
//   - Decision: the classified intent of a conversational turn
//   - Candidate: a paper found by search, not yet ingested
//   - Chunk and VectorRecord: the units of embedding and retrieval
//   - AnswerResult: the terminal artefact of a turn
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
