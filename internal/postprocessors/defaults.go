package postprocessors

import (
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/postprocessors/chunker"
	"github.com/custodia-labs/paperchat/internal/postprocessors/provenance"
)

// Processor names.
const (
	ChunkerName    = "chunker"
	ProvenanceName = "provenance"
)

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
	r.Register(ProvenanceName, func(map[string]any) (driven.PostProcessor, error) {
		return provenance.New(), nil
	})
}

// NewIngestPipeline builds the chunker -> provenance pipeline for settings.
func NewIngestPipeline(settings domain.IngestSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	return r.BuildPipeline([]string{ChunkerName, ProvenanceName}, map[string]map[string]any{
		ChunkerName: {
			"chunk_size": settings.ChunkSize,
			"overlap":    settings.ChunkOverlap,
		},
	})
}

// buildChunker creates a chunker from generic config.
// Supported keys: chunk_size (default 1024), overlap (default 50).
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int from values parsed out of TOML or JSON.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
