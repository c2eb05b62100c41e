package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faceless-truth/mcs-platform/internal/commit"
	"github.com/faceless-truth/mcs-platform/internal/config"
	"github.com/faceless-truth/mcs-platform/internal/engine"
	"github.com/faceless-truth/mcs-platform/internal/ingest"
	"github.com/faceless-truth/mcs-platform/internal/job"
	"github.com/faceless-truth/mcs-platform/internal/learning"
	"github.com/faceless-truth/mcs-platform/internal/llm"
	"github.com/faceless-truth/mcs-platform/internal/service"
	"github.com/faceless-truth/mcs-platform/internal/storage"
)

// app bundles the wired services behind a command.
type app struct {
	cfg      *config.Config
	storage  service.Storage
	jobs     *job.Manager
	ingest   *ingest.Service
	learning *learning.Store
}

// newApp wires storage, the classification engine, and the job pipeline
// from resolved configuration. withAI controls whether the external
// classifier is constructed; commands that never classify skip it.
func newApp(withAI bool) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	cleanups := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var classifier service.Classifier
	if withAI && cfg.AI.APIKey != "" {
		c, err := llm.NewClassifier(llm.Config{
			Provider:    cfg.AI.Provider,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			MaxRetries:  cfg.AI.MaxRetries,
			RetryDelay:  cfg.AI.RetryDelay,
			CacheTTL:    cfg.AI.CacheTTL,
			RateLimit:   cfg.AI.RateLimit,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		}, slog.Default())
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create AI classifier: %w", err)
		}
		cleanups = append(cleanups, func() { _ = c.Close() })
		classifier = c
	} else if withAI {
		slog.Warn("no AI API key configured, classification will rely on learned patterns only")
	}

	learningStore := learning.NewStore(store, cfg.Classification.TrustThreshold)
	eng := engine.New(learningStore, classifier, cfg.Classification, slog.Default())
	committer := commit.NewEngine(store, learningStore, slog.Default())
	jobs := job.NewManager(store, eng, committer, cfg, slog.Default())
	ingestSvc := ingest.NewService(jobs, cfg.Ingest.MaxDocumentBytes, slog.Default())

	return &app{
		cfg:      cfg,
		storage:  store,
		jobs:     jobs,
		ingest:   ingestSvc,
		learning: learningStore,
	}, cleanup, nil
}
