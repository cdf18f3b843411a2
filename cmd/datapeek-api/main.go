package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datapeek/datapeek/internal/api"
	"github.com/datapeek/datapeek/internal/api/uistatic"
	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/mutate"
	"github.com/datapeek/datapeek/internal/nl2sql"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/profile"
	"github.com/datapeek/datapeek/internal/query"
	duckdbengine "github.com/datapeek/datapeek/internal/query/duckdb"
	"github.com/datapeek/datapeek/internal/stats"
)

func main() {
	cfg, err := config.LoadFromEnv("datapeek-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	resolver, err := dataset.NewResolver(cfg.Data.Dir, cfg.Data.File)
	if err != nil {
		logger.Error("failed to open data root", slog.Any("error", err))
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Data.CacheDir, 0o755); err != nil {
		logger.Error("failed to create cache dir", slog.Any("error", err))
		os.Exit(1)
	}

	deletes := dataset.NewSoftDeletes()
	engine := duckdbengine.NewEngine(deletes, cfg.Query.MaxCellChars)
	mutator := mutate.NewMutator(deletes, cfg.Data.AllowDeleteData)
	analyzer := stats.NewAnalyzer(engine, cfg.Query.DefaultSample, cfg.Query.MaxSample)
	generator := profile.NewGenerator(engine, profile.Options{
		CacheDir:     cfg.Data.CacheDir,
		DefaultRows:  cfg.Profiling.DefaultRows,
		MaxRows:      cfg.Profiling.MaxRows,
		MaxCellChars: cfg.Profiling.MaxCellChars,
		NestedPolicy: cfg.Profiling.NestedPolicy,
		DefaultMode:  cfg.Profiling.Mode,
	})

	var translator nl2sql.Translator
	if cfg.AI.TranslateEnabled {
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize query translator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Data.Watch {
		if err := dataset.Watch(ctx, logger, resolver.Root(), deletes); err != nil {
			logger.Warn("file watching disabled", slog.Any("error", err))
		} else {
			logger.Info("watching data root for external changes", slog.String("dir", resolver.Root()))
		}
	}

	deps := api.Dependencies{
		Logger:     logger,
		Resolver:   resolver,
		Deletes:    deletes,
		Engine:     engine,
		Mutator:    mutator,
		Stats:      analyzer,
		Profiler:   generator,
		Translator: translator,
		PageLimits: query.Limits{
			Default: cfg.Query.DefaultLimit,
			Max:     cfg.Query.MaxLimit,
		},
		AllowDelete: cfg.Data.AllowDeleteData,
		CacheDir:    cfg.Data.CacheDir,
		Readiness: api.CombineReadinessChecks(
			api.CheckDataRoot(resolver),
			api.CheckCacheDir(cfg.Data.CacheDir),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.UI.Enabled {
		deps.UI = uistatic.Handler()
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("data_dir", resolver.Root()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
