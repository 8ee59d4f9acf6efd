package driving

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// Classifier turns a query and its history into a validated Decision.
type Classifier interface {
	Classify(ctx context.Context, query string, history []domain.ChatMessage) (*domain.Decision, error)
}

// Fetcher runs the query x category fan-out and stages the results.
type Fetcher interface {
	Fetch(ctx context.Context, queries, categories []string) (*domain.FetchResult, error)
}

// Ingestor extracts, chunks, embeds and stores artefacts.
type Ingestor interface {
	// Ingest processes staged artefacts and removes them afterwards.
	Ingest(ctx context.Context, artifacts []domain.StagedArtifact) (*domain.IngestReport, error)

	// IngestFiles processes user-owned files and leaves them in place.
	IngestFiles(ctx context.Context, paths []string) (*domain.IngestReport, error)
}

// AnswerRequest is the input to grounded or conversational answering.
type AnswerRequest struct {
	Query   string
	Request string
	History []domain.ChatMessage
	Fetch   domain.FetchContext
}

// Answerer produces a grounded answer from the vector collection.
type Answerer interface {
	Answer(ctx context.Context, req AnswerRequest) (*domain.AnswerResult, error)
}

// Responder produces a conversational reply without retrieval.
type Responder interface {
	Respond(ctx context.Context, req AnswerRequest) (*domain.AnswerResult, error)
}
