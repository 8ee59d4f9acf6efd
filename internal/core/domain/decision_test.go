package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision_Validate(t *testing.T) {
	tests := []struct {
		name     string
		decision *Decision
		wantErr  bool
	}{
		{
			name:     "chitchat",
			decision: &Decision{Request: "Hi there!"},
		},
		{
			name: "grounded question without fetch",
			decision: &Decision{
				UseGrounding: true,
				Request:      "What are the limitations of LIME?",
			},
		},
		{
			name: "fetch and explain",
			decision: &Decision{
				Fetch:         true,
				UseGrounding:  true,
				Request:       "Explain Explainable AI techniques",
				SearchQueries: []string{"explainable AI", "interpretable machine learning"},
				Categories:    []string{"cs.AI"},
			},
		},
		{
			name: "fetch without categories",
			decision: &Decision{
				Fetch:         true,
				SearchQueries: []string{"attention is all you need"},
			},
		},
		{
			name:     "nil decision",
			decision: nil,
			wantErr:  true,
		},
		{
			name: "queries without fetch",
			decision: &Decision{
				SearchQueries: []string{"graph neural networks"},
			},
			wantErr: true,
		},
		{
			name: "categories without fetch",
			decision: &Decision{
				Categories: []string{"cs.LG"},
			},
			wantErr: true,
		},
		{
			name:     "fetch without queries",
			decision: &Decision{Fetch: true},
			wantErr:  true,
		},
		{
			name: "too many queries",
			decision: &Decision{
				Fetch:         true,
				SearchQueries: []string{"a", "b", "c", "d", "e", "f"},
			},
			wantErr: true,
		},
		{
			name: "blank query",
			decision: &Decision{
				Fetch:         true,
				SearchQueries: []string{"ok", " "},
			},
			wantErr: true,
		},
		{
			name: "blank category",
			decision: &Decision{
				Fetch:         true,
				SearchQueries: []string{"ok"},
				Categories:    []string{""},
			},
			wantErr: true,
		},
		{
			name:     "grounding without request",
			decision: &Decision{UseGrounding: true},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDecision)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
