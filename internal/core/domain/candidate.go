package domain

import (
	"strings"
	"time"
)

// Candidate is a paper found by search but not yet downloaded or ingested.
type Candidate struct {
	// ID is the index identifier (an arXiv ID such as "1706.03762v7").
	ID string `json:"id"`

	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	ArtifactURL string    `json:"artifact_url"`
	PublishedAt time.Time `json:"published_at"`
	Authors     []string  `json:"authors,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
}

// NormaliseTitle returns the deduplication key for a title: case-folded,
// trimmed, with internal whitespace runs collapsed to one space.
func NormaliseTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// DedupeCandidates removes candidates whose normalised title has already
// been seen, preserving first-occurrence order.
func DedupeCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := NormaliseTitle(c.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}

// SearchQuery is a single request to the external document index.
type SearchQuery struct {
	// Text is the free-text query.
	Text string

	// Category restricts results to a category tag. Empty means no filter.
	Category string

	// Field is the qualifier applied to Text ("ti", "abs", "all").
	Field string

	// MaxResults caps the number of results for this call.
	MaxResults int
}

// StagedArtifact is a downloaded file awaiting ingestion.
type StagedArtifact struct {
	LocalPath string
	Candidate Candidate
}

// FetchFailure records a candidate that could not be downloaded.
type FetchFailure struct {
	Candidate Candidate
	Err       error
}

// FetchResult is the outcome of one fan-out search and download.
// An empty result means no matching documents; it is not an error.
type FetchResult struct {
	Candidates []Candidate
	Staged     []StagedArtifact
	Failures   []FetchFailure
}

// IsEmpty reports whether nothing was found.
func (r *FetchResult) IsEmpty() bool {
	return r == nil || len(r.Candidates) == 0
}

// Titles returns the titles of all deduplicated candidates.
func (r *FetchResult) Titles() []string {
	if r == nil {
		return nil
	}
	titles := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		titles = append(titles, c.Title)
	}
	return titles
}
