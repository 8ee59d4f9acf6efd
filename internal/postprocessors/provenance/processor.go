// Package provenance stamps document provenance onto chunk metadata.
package provenance

import (
	"context"
	"fmt"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// Processor copies document-level provenance onto every chunk so that each
// stored record can be traced back to its source.
type Processor struct{}

// New creates a provenance processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "provenance"
}

// Process sets source, filename, title, document_id and position on each chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	source := stringMeta(doc.Metadata, domain.MetaSource)
	if source == "" {
		source = doc.URI
	}
	filename := stringMeta(doc.Metadata, domain.MetaFilename)

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		md := chunks[i].Metadata
		md[domain.MetaSource] = source
		md[domain.MetaFilename] = filename
		md[domain.MetaTitle] = doc.Title
		md[domain.MetaDocumentID] = doc.ID
		md[domain.MetaPosition] = chunks[i].Position
	}
	return chunks, nil
}

func stringMeta(md map[string]any, key string) string {
	v, ok := md[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
