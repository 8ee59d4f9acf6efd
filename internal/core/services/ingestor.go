package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// Metadata keys carried from arXiv candidates into vector metadata.
const (
	metaAuthors    = "authors"
	metaCategories = "categories"
	metaPublished  = "published"
)

// Ingestor extracts, chunks, embeds and stores documents.
type Ingestor struct {
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	embedder    driven.EmbeddingService
	store       driven.CollectionStore
	staging     driven.StagingArea
	settings    *domain.AppSettings
}

// NewIngestor creates an ingestor. staging may be nil when only IngestFiles is used.
func NewIngestor(
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.CollectionStore,
	staging driven.StagingArea,
	settings *domain.AppSettings,
) *Ingestor {
	return &Ingestor{
		normalisers: normalisers,
		pipeline:    pipeline,
		embedder:    embedder,
		store:       store,
		staging:     staging,
		settings:    settings,
	}
}

// ingestItem is one file to ingest. Staged files are removed afterwards.
type ingestItem struct {
	path      string
	candidate *domain.Candidate
	staged    bool
}

type extraction struct {
	doc    *domain.Document
	chunks []domain.Chunk
	err    error
}

// Ingest processes staged artifacts and always removes them.
func (i *Ingestor) Ingest(ctx context.Context, artifacts []domain.StagedArtifact) (*domain.IngestReport, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: no artifacts", domain.ErrIngestionFailed)
	}

	items := make([]ingestItem, len(artifacts))
	for n, a := range artifacts {
		c := a.Candidate
		items[n] = ingestItem{path: a.LocalPath, candidate: &c, staged: true}
	}
	return i.run(ctx, items)
}

// IngestFiles processes user-owned files. They are never deleted.
func (i *Ingestor) IngestFiles(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files", domain.ErrIngestionFailed)
	}

	items := make([]ingestItem, len(paths))
	for n, p := range paths {
		items[n] = ingestItem{path: p}
	}
	return i.run(ctx, items)
}

func (i *Ingestor) run(ctx context.Context, items []ingestItem) (*domain.IngestReport, error) {
	report := &domain.IngestReport{}
	defer i.cleanup(items, report)

	collection, err := i.store.GetOrCreate(ctx, i.settings.CollectionName)
	if err != nil {
		return report, fmt.Errorf("%w: open collection: %w", domain.ErrIngestionFailed, err)
	}

	extracted := i.extract(ctx, items)

	for n, item := range items {
		ex := extracted[n]
		if ex.err != nil {
			logger.Warn("Skipping %s: %v", filepath.Base(item.path), ex.err)
			report.Skipped = append(report.Skipped, item.path)
			continue
		}

		if err := i.embedAndStore(ctx, collection, ex.chunks); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("Skipping %s: %v", filepath.Base(item.path), err)
			report.Skipped = append(report.Skipped, item.path)
			continue
		}

		report.Documents = append(report.Documents, ex.doc.ID)
		report.Titles = append(report.Titles, ex.doc.Title)
		report.Chunks += len(ex.chunks)
		logger.Info("Ingested %s (%d chunks)", ex.doc.ID, len(ex.chunks))
	}

	if !report.OK() {
		return report, fmt.Errorf("%w: no document produced chunks", domain.ErrIngestionFailed)
	}
	return report, nil
}

// extract normalises and chunks every item in parallel.
func (i *Ingestor) extract(ctx context.Context, items []ingestItem) []extraction {
	results := make([]extraction, len(items))

	var g errgroup.Group
	g.SetLimit(max(1, i.settings.Ingest.Workers))

	for n, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[n] = extraction{err: err}
				return nil
			}
			doc, chunks, err := i.extractOne(ctx, item)
			results[n] = extraction{doc: doc, chunks: chunks, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (i *Ingestor) extractOne(ctx context.Context, item ingestItem) (*domain.Document, []domain.Chunk, error) {
	content, err := os.ReadFile(item.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}

	raw := &domain.RawDocument{
		URI:      item.path,
		Content:  content,
		Metadata: map[string]any{domain.MetaFilename: filepath.Base(item.path)},
	}
	if item.candidate != nil {
		raw.Metadata[domain.MetaTitle] = item.candidate.Title
	}

	result, err := i.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}

	doc := result.Document
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil, domain.ErrEmptyExtraction
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata[domain.MetaFilename] = filepath.Base(item.path)

	if c := item.candidate; c != nil {
		doc.ID = c.ID
		doc.Title = c.Title
		if c.ArtifactURL != "" {
			doc.Metadata[domain.MetaSource] = c.ArtifactURL
		}
	} else {
		doc.ID = localDocumentID(item.path)
		if doc.Title == "" {
			doc.Title = filepath.Base(item.path)
		}
		doc.Metadata[domain.MetaSource] = item.path
	}

	chunks, err := i.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil, domain.ErrEmptyExtraction
	}

	if c := item.candidate; c != nil {
		annotate(chunks, c)
	}
	return &doc, chunks, nil
}

// localDocumentID names a local file by its base name plus a short digest of
// its absolute path, so equal base names in different directories stay apart.
func localDocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String()
	return filepath.Base(path) + "-" + digest[:8]
}

// annotate copies candidate metadata onto each chunk.
func annotate(chunks []domain.Chunk, c *domain.Candidate) {
	for n := range chunks {
		if chunks[n].Metadata == nil {
			chunks[n].Metadata = make(map[string]any)
		}
		if len(c.Authors) > 0 {
			chunks[n].Metadata[metaAuthors] = strings.Join(c.Authors, ", ")
		}
		if len(c.Categories) > 0 {
			chunks[n].Metadata[metaCategories] = strings.Join(c.Categories, ", ")
		}
		if !c.PublishedAt.IsZero() {
			chunks[n].Metadata[metaPublished] = c.PublishedAt.Format("2006-01-02")
		}
	}
}

// embedAndStore embeds chunks in batches and upserts them as one write.
func (i *Ingestor) embedAndStore(ctx context.Context, collection driven.VectorCollection, chunks []domain.Chunk) error {
	batch := i.settings.Ingest.EmbedBatchSize
	if batch <= 0 {
		batch = len(chunks)
	}

	records := make([]domain.VectorRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(texts))
		}

		for n, c := range chunks[start:end] {
			records = append(records, domain.VectorRecord{
				ChunkID:   c.ID,
				Embedding: vectors[n],
				Text:      c.Content,
				Metadata:  stringifyMetadata(c.Metadata),
			})
		}
	}

	if err := collection.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// cleanup removes staged files. Failures are counted, never returned.
func (i *Ingestor) cleanup(items []ingestItem, report *domain.IngestReport) {
	for _, item := range items {
		if !item.staged {
			continue
		}
		var err error
		if i.staging != nil {
			err = i.staging.Remove(item.path)
		} else if rmErr := os.Remove(item.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
		if err != nil {
			report.CleanupFailures++
			logger.Warn("Could not remove staged file %s: %v", item.path, err)
		}
	}
}

func stringifyMetadata(md map[string]any) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
