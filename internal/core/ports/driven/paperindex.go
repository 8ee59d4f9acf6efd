package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// PaperIndex is the external document search API.
type PaperIndex interface {
	// Search returns up to query.MaxResults candidates ranked by relevance.
	// No matches is an empty slice, not an error.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.Candidate, error)

	// Download opens the candidate's artefact. The caller closes the reader.
	Download(ctx context.Context, candidate domain.Candidate) (io.ReadCloser, error)
}

// StagingArea holds downloaded artefacts until they are ingested.
type StagingArea interface {
	// Stage writes r to a file named after title and returns its path.
	Stage(ctx context.Context, title string, r io.Reader) (string, error)

	// Remove deletes a staged file.
	Remove(path string) error

	// Dir returns the staging directory.
	Dir() string
}
