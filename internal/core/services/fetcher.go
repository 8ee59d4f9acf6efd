package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driving.Fetcher = (*Fetcher)(nil)

// Fetcher searches the paper index for every query and category pair,
// deduplicates the hits by title and stages their PDFs.
type Fetcher struct {
	index   driven.PaperIndex
	staging driven.StagingArea
	cfg     *domain.FetchSettings
}

// NewFetcher creates a fetcher.
func NewFetcher(index driven.PaperIndex, staging driven.StagingArea, cfg *domain.FetchSettings) *Fetcher {
	return &Fetcher{index: index, staging: staging, cfg: cfg}
}

// Fetch runs the searches concurrently and downloads the surviving candidates.
// No hits is an empty result, not an error.
func (f *Fetcher) Fetch(ctx context.Context, queries, categories []string) (*domain.FetchResult, error) {
	searches := f.plan(queries, categories)
	if len(searches) == 0 {
		return nil, fmt.Errorf("%w: no search queries", domain.ErrInvalidInput)
	}

	candidates, err := f.search(ctx, searches)
	if err != nil {
		return nil, err
	}

	result := &domain.FetchResult{Candidates: domain.DedupeCandidates(candidates)}
	if result.IsEmpty() {
		logger.Info("No papers matched %d searches", len(searches))
		return result, nil
	}
	logger.Info("Found %d distinct papers from %d searches", len(result.Candidates), len(searches))

	for _, c := range result.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := f.download(ctx, c)
		if err != nil {
			logger.Warn("Skipping %q: %v", c.Title, err)
			result.Failures = append(result.Failures, domain.FetchFailure{Candidate: c, Err: err})
			continue
		}
		result.Staged = append(result.Staged, domain.StagedArtifact{LocalPath: path, Candidate: c})
	}

	return result, nil
}

// plan builds the query x category cross product in a fixed order.
// No categories means one unfiltered search per query.
func (f *Fetcher) plan(queries, categories []string) []domain.SearchQuery {
	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = []string{""}
	}

	var searches []domain.SearchQuery
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		for _, c := range cats {
			searches = append(searches, domain.SearchQuery{
				Text:       q,
				Category:   c,
				Field:      f.cfg.Field,
				MaxResults: f.cfg.MaxResults,
			})
		}
	}
	return searches
}

// search fans out with bounded concurrency. Each goroutine owns one slot of
// results, so the merge keeps cross-product order without locking.
func (f *Fetcher) search(ctx context.Context, searches []domain.SearchQuery) ([]domain.Candidate, error) {
	results := make([][]domain.Candidate, len(searches))

	var g errgroup.Group
	g.SetLimit(f.concurrency())

	for i, q := range searches {
		g.Go(func() error {
			hits, err := f.index.Search(ctx, q)
			if err != nil {
				logger.Warn("Search %q (category %q) failed: %v", q.Text, q.Category, err)
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []domain.Candidate
	for _, hits := range results {
		merged = append(merged, hits...)
	}
	return merged, nil
}

func (f *Fetcher) download(ctx context.Context, c domain.Candidate) (string, error) {
	body, err := f.index.Download(ctx, c)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer body.Close()

	path, err := f.staging.Stage(ctx, c.Title, body)
	if err != nil {
		return "", fmt.Errorf("stage: %w", err)
	}
	logger.Debug("Staged %s as %s", c.ID, path)
	return path, nil
}

func (f *Fetcher) concurrency() int {
	n := f.cfg.Concurrency
	if n <= 0 || n > domain.MaxFetchConcurrency {
		n = domain.MaxFetchConcurrency
	}
	return n
}
