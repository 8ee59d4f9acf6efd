package domain

// Document is the extracted text of one artefact, ready for chunking.
type Document struct {
	// ID is the stable document identifier reported in answer sources.
	ID string

	// URI is the original location (artefact URL or local path).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata carries provenance such as source and filename.
	Metadata map[string]any
}

// Chunk is a fixed-size window of a document's text.
type Chunk struct {
	// ID is derived deterministically from DocumentID and Position.
	ID string

	DocumentID string
	Content    string
	Position   int

	// Embedding is set once the chunk has been embedded.
	Embedding []float32

	Metadata map[string]any
}

// Metadata keys stored on every vector record.
const (
	MetaSource     = "source"
	MetaFilename   = "filename"
	MetaTitle      = "title"
	MetaDocumentID = "document_id"
	MetaPosition   = "position"
)

// VectorRecord is a chunk persisted in a named collection.
type VectorRecord struct {
	ChunkID   string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// DocumentID returns the owning document identifier from metadata.
func (r VectorRecord) DocumentID() string {
	return r.Metadata[MetaDocumentID]
}

// VectorHit is a record returned by a nearest-neighbour query.
type VectorHit struct {
	Record     VectorRecord
	Similarity float64
}

// CollectionStats summarises a vector collection.
type CollectionStats struct {
	Name       string
	Dimensions int
	Records    int
	Documents  int
}

// IngestReport summarises one ingestion call.
type IngestReport struct {
	// Documents lists the IDs of documents that contributed chunks.
	Documents []string

	// Titles lists the titles of those documents, in the same order.
	Titles []string

	// Chunks is the number of chunks upserted.
	Chunks int

	// Skipped lists artefacts that produced no usable text.
	Skipped []string

	// CleanupFailures counts staged files that could not be removed.
	CleanupFailures int
}

// OK reports whether at least one document contributed chunks.
func (r *IngestReport) OK() bool {
	return r != nil && len(r.Documents) > 0
}
