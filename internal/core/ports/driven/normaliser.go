package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// Normaliser extracts plain text from raw artefacts.
// Each normaliser handles specific MIME types (e.g., PDF, HTML).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise transforms a raw artefact into a document with Content set.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	Document domain.Document
}

// NormaliserRegistry selects a normaliser for a raw artefact.
type NormaliserRegistry interface {
	// Register adds a normaliser.
	Register(n Normaliser)

	// Normalise dispatches to the highest-priority normaliser for the MIME type.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}
