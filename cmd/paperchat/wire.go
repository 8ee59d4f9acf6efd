package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/arxiv"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/staging"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/core/services"
	"github.com/custodia-labs/paperchat/internal/logger"
	"github.com/custodia-labs/paperchat/internal/normalisers"
	"github.com/custodia-labs/paperchat/internal/postprocessors"
)

// factory wires adapters into services for the CLI.
type factory struct {
	// validate pings every AI provider before the runtime is returned.
	validate bool
}

var _ cli.Factory = (*factory)(nil)

func (f *factory) Settings(opts cli.Options) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(opts.Home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store, opts.Home), nil
}

func (f *factory) Runtime(ctx context.Context, opts cli.Options) (*cli.Runtime, error) {
	settingsService, err := f.Settings(opts)
	if err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	store, err := openStore(settings, opts.Ephemeral)
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.NewServices(ctx, settings, f.validate)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	closeAll := func() {
		aiServices.Close()
		closeStore(store)
	}

	chat, tools, ingestor, extensions, err := buildPipeline(settings, store, aiServices)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &cli.Runtime{
		Settings:        settings,
		SettingsService: settingsService,
		Chat:            chat,
		Tools:           tools,
		Ingestor:        ingestor,
		Extensions:      extensions,
		OnClose:         closeAll,
	}, nil
}

func (f *factory) Stats(ctx context.Context, opts cli.Options) ([]domain.CollectionStats, error) {
	if opts.Ephemeral {
		return nil, nil
	}
	settingsService, err := f.Settings(opts)
	if err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewStore(settings.DataDir())
	if err != nil {
		return nil, err
	}
	defer closeStore(store)
	return store.Stats(ctx)
}

// buildPipeline assembles the turn pipeline: classifier, tool registry
// (fetch_papers, answer_question) and conversational responder.
func buildPipeline(
	settings *domain.AppSettings,
	store driven.CollectionStore,
	aiServices *ai.Services,
) (*services.Orchestrator, *services.ToolRegistry, *services.Ingestor, []string, error) {
	prompts, err := file.NewPromptStore(settings.PromptDir())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening prompts: %w", err)
	}

	pipeline, err := postprocessors.NewIngestPipeline(settings.Ingest)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("building ingest pipeline: %w", err)
	}
	registry := normalisers.NewDefaultRegistry(nil)
	stagingArea := staging.NewArea(settings.StagingDir())
	index := arxiv.NewClient(arxiv.ConfigFromSettings(settings.Fetch), nil)

	fetcher := services.NewFetcher(index, stagingArea, &settings.Fetch)
	ingestor := services.NewIngestor(registry, pipeline, aiServices.Embedding, store, stagingArea, settings)
	answerer := services.NewAnswerer(aiServices.Embedding, store, aiServices.Answerer, prompts, settings)
	responder := services.NewResponder(aiServices.Answerer, prompts)

	classifier, err := services.NewClassifier(aiServices.Classifier, prompts)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	tools, err := services.NewDefaultToolRegistry(fetcher, ingestor, answerer)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return services.NewOrchestrator(classifier, tools, responder), tools, ingestor, registry.SupportedExtensions(), nil
}

func openStore(settings *domain.AppSettings, ephemeral bool) (driven.CollectionStore, error) {
	if ephemeral {
		logger.Debug("using in-memory vector store")
		return memory.NewStore(), nil
	}
	store, err := sqlite.NewStore(settings.DataDir())
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	logger.Debug("vector store: %s", store.Path())
	return store, nil
}

func closeStore(store driven.CollectionStore) {
	if err := store.Close(); err != nil {
		logger.Warn("closing vector store: %v", err)
	}
}
