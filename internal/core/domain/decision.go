package domain

import (
	"fmt"
	"strings"
)

// MaxSearchQueries bounds the number of search queries in a Decision.
const MaxSearchQueries = 5

// Decision is the structured output of turn classification.
// It drives the Orchestrator's routing for exactly one turn.
type Decision struct {
	// Fetch reports whether new papers should be fetched.
	Fetch bool `json:"fetch"`

	// UseGrounding reports whether the request contains an answerable
	// question that must go through retrieval.
	UseGrounding bool `json:"use_grounding"`

	// Request is the normalised question or topic, free of fetch phrasing.
	Request string `json:"request"`

	// SearchQueries are short, diverse queries for the document index.
	SearchQueries []string `json:"search_queries"`

	// Categories are optional category tags (e.g. "cs.AI").
	Categories []string `json:"categories"`
}

// Validate checks the Decision invariants.
func (d *Decision) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil decision", ErrInvalidDecision)
	}

	if !d.Fetch {
		if len(d.SearchQueries) > 0 || len(d.Categories) > 0 {
			return fmt.Errorf("%w: search queries or categories set without fetch", ErrInvalidDecision)
		}
		return d.validateRequest()
	}

	if len(d.SearchQueries) == 0 {
		return fmt.Errorf("%w: fetch requested without search queries", ErrInvalidDecision)
	}
	if len(d.SearchQueries) > MaxSearchQueries {
		return fmt.Errorf("%w: %d search queries exceeds limit of %d",
			ErrInvalidDecision, len(d.SearchQueries), MaxSearchQueries)
	}
	for i, q := range d.SearchQueries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: search query %d is empty", ErrInvalidDecision, i)
		}
	}
	for i, c := range d.Categories {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: category %d is empty", ErrInvalidDecision, i)
		}
	}

	return d.validateRequest()
}

func (d *Decision) validateRequest() error {
	if d.UseGrounding && strings.TrimSpace(d.Request) == "" {
		return fmt.Errorf("%w: grounding requested without a request", ErrInvalidDecision)
	}
	return nil
}
