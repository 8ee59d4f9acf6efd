// Package chunker provides a fixed-size sliding-window chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1024

// DefaultChunkOverlap is the default number of characters shared by
// consecutive chunks.
const DefaultChunkOverlap = 50

// Processor splits document content into overlapping fixed-size windows.
// Sizes are counted in runes so multi-byte text is never split mid-character.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave a positive step.
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// The same content always yields the same windows and chunk IDs.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	runes := []rune(doc.Content)
	total := len(runes)
	step := p.chunkSize - p.overlap

	chunks := make([]domain.Chunk, 0, Count(total, p.chunkSize, p.overlap))

	for start, position := 0, 0; ; start, position = start+step, position+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, position),
			DocumentID: doc.ID,
			Content:    string(runes[start:end]),
			Position:   position,
			Metadata:   make(map[string]any),
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}

// Count returns how many windows a text of length runes produces.
func Count(length, size, overlap int) int {
	if length == 0 {
		return 0
	}
	if length <= size {
		return 1
	}
	step := size - overlap
	return 1 + (length-size+step-1)/step
}

// ChunkID derives a stable identifier for the chunk at position in docID.
func ChunkID(docID string, position int) string {
	name := fmt.Sprintf("%s#%d", docID, position)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
