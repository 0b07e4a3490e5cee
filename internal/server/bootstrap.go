package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/sentinel/internal/config"
	"github.com/agenthands/sentinel/internal/core"
	"github.com/agenthands/sentinel/internal/driver"
	"github.com/agenthands/sentinel/internal/events"
	"github.com/agenthands/sentinel/internal/llm"
	"github.com/agenthands/sentinel/internal/store"
)

// FromConfig builds a server and its collaborators. The returned cleanup
// releases the embedding client and the Memgraph connection, and is safe to
// call even when an error is returned.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("cleanup failed", slog.String("error", err.Error()))
			}
		}
	}

	embedder, err := llm.NewEmbedder(ctx, cfg.LLM)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if embedder == nil {
		logger.Info("no embedding provider configured, semantic detection uses text statistics")
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	hooks := events.NewHookManager(logger)

	var reports *store.ReportStore
	if cfg.Memgraph.Enabled {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to Memgraph: %w", err)
		}
		closers = append(closers, func() error { return d.Close(context.Background()) })
		if err := d.BuildIndices(ctx); err != nil {
			logger.Warn("failed to build indices", slog.String("error", err.Error()))
		}
		reports = store.NewReportStore(d, logger)
		hooks.Subscribe(events.CoordinationAnalysisRun, reports.Handle)
	}

	sentinel := core.NewSentinel(cfg, embedder, logger)
	return NewServer(sentinel, hooks, reports, logger), cleanup, nil
}
