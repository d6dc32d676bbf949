package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/feed"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/loader"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/memstore"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/cfohelper-go/internal/infrastructure/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	forecasts, err := buildHistory(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := forecasts.Close(); err != nil {
			logger.Warn("closing history failed", zap.Error(err))
		}
	}()

	index, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	contexts := memstore.NewContextStore()
	engine := usecases.NewEngine(logger)

	analysis := usecases.NewAnalysisUseCase(usecases.AnalysisDeps{
		Contexts:  contexts,
		Scenarios: memstore.NewScenarioStore(),
		Analyses:  memstore.NewAnalysisStore(),
		Engine:    engine,
		Index:     index,
		Generator: generator,
		Usage:     forecasts,
	}, usecases.AnalysisConfig{
		TopK:              cfg.Generation.TopK,
		GenerationTimeout: cfg.Generation.Timeout,
		MaxTokens:         cfg.Generation.MaxTokens,
		Temperature:       cfg.Generation.Temperature,
	}, logger)

	ingest := usecases.NewIngestUseCase(index, loader.NewMultiLoader(), logger, 0, 0)

	deps := httpserver.Deps{
		Analysis:  analysis,
		Forecasts: usecases.NewForecastUseCase(engine, forecasts, logger),
		Ingest:    ingest,
		Index:     index,
		Provider:  generator.Name(),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.KnowledgeDir != "" {
		n, err := ingest.IngestDirectory(ctx, cfg.KnowledgeDir)
		if err != nil {
			return err
		}
		logger.Info("knowledge directory indexed", zap.String("dir", cfg.KnowledgeDir), zap.Int("chunks", n))

		watcher, err := filewatcher.NewFSNotifyWatcher(loader.NewMultiLoader().SupportedExtensions(), logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return ingest.Sync(gctx, watcher, cfg.KnowledgeDir)
		})
	}

	if cfg.Feed.Enabled {
		f := feed.New(contexts, feed.Config{Interval: cfg.Feed.Interval}, logger)
		deps.Feed = f
		g.Go(func() error {
			return f.Run(gctx)
		})
	}

	srv := httpserver.NewServer(deps, httpserver.Options{
		Addr:        cfg.Addr(),
		CORSOrigins: cfg.CORSOrigins,
	}, logger)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	return g.Wait()
}
