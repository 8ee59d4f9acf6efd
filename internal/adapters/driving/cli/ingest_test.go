package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file...]", ingestCmd.Use)
}

func TestIngestCmd_Files(t *testing.T) {
	ingestor := &mockIngestor{report: &domain.IngestReport{
		Documents: []string{"d1", "d2"},
		Titles:    []string{"notes", "paper"},
		Chunks:    7,
	}}
	rt, closed := newRuntime(nil, nil, ingestor)
	setupTestFactory(t, &mockFactory{runtime: rt})

	out, err := executeCommand(t, context.Background(), "", "ingest", "notes.txt", "paper.pdf")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"notes.txt", "paper.pdf"}}, ingestor.Calls())
	assert.Contains(t, out, "Indexed 2 documents (7 chunks)")
	assert.True(t, *closed)
}

func TestIngestCmd_Error(t *testing.T) {
	ingestor := &mockIngestor{
		report: &domain.IngestReport{Skipped: []string{"empty.pdf"}},
		err:    domain.ErrIngestionFailed,
	}
	rt, _ := newRuntime(nil, nil, ingestor)
	setupTestFactory(t, &mockFactory{runtime: rt})

	out, err := executeCommand(t, context.Background(), "", "ingest", "empty.pdf")

	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Contains(t, out, "Skipped 1:")
	assert.Contains(t, out, "  - empty.pdf")
}

func TestIngestCmd_ArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no files", []string{"ingest"}},
		{"files and watch", []string{"ingest", "--watch", "dir", "a.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFactory{}
			setupTestFactory(t, f)

			_, err := executeCommand(t, context.Background(), "", tt.args...)

			assert.Error(t, err)
			assert.Zero(t, f.runtimeCalls)
		})
	}
}

func TestIngestCmd_WatchIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o600))

	ingestor := &mockIngestor{report: &domain.IngestReport{Documents: []string{"a", "b"}, Chunks: 2}}
	rt, closed := newRuntime(nil, nil, ingestor)
	setupTestFactory(t, &mockFactory{runtime: rt})

	// A cancelled context makes the watch loop return as soon as it starts.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := executeCommand(t, ctx, "", "ingest", "--watch", dir)

	require.NoError(t, err)
	assert.Equal(t, [][]string{{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.pdf")}}, ingestor.Calls())
	assert.Contains(t, out, "Indexed 2 documents (2 chunks)")
	assert.Contains(t, out, "Watching "+dir)
	assert.True(t, *closed)
}

func TestIngestCmd_WatchMissingDirectory(t *testing.T) {
	ingestor := &mockIngestor{}
	rt, _ := newRuntime(nil, nil, ingestor)
	setupTestFactory(t, &mockFactory{runtime: rt})

	_, err := executeCommand(t, context.Background(), "", "ingest", "--watch", filepath.Join(t.TempDir(), "missing"))

	assert.Error(t, err)
	assert.Empty(t, ingestor.Calls())
}

func TestSyncWriter_ConcurrentWrites(t *testing.T) {
	buf := new(bytes.Buffer)
	w := &syncWriter{w: buf}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Write([]byte("line\n"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, buf.Len())
}
