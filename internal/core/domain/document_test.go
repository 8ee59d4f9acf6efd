package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestReport_OK(t *testing.T) {
	var nilReport *IngestReport
	assert.False(t, nilReport.OK())
	assert.False(t, (&IngestReport{Skipped: []string{"a.pdf"}}).OK())
	assert.True(t, (&IngestReport{Documents: []string{"1706.03762v7"}, Chunks: 12}).OK())
}

func TestVectorRecord_DocumentID(t *testing.T) {
	r := VectorRecord{Metadata: map[string]string{MetaDocumentID: "doc-1"}}
	assert.Equal(t, "doc-1", r.DocumentID())
	assert.Empty(t, VectorRecord{}.DocumentID())
}

func TestTurnTrace(t *testing.T) {
	var trace TurnTrace
	assert.Equal(t, StateStart, trace.State())

	trace.Enter(StateClassified)
	trace.Enter(StateSkippedFetch)
	assert.Equal(t, StateSkippedFetch, trace.State())
	assert.Equal(t, []TurnState{StateClassified, StateSkippedFetch}, trace.States)
}
