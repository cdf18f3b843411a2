package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/datapeek/datapeek/internal/demo/seed"
)

func main() {
	cfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := seed.NewSeeder(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize demo seeder", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo seeder started",
		slog.String("dir", cfg.Dir),
		slog.Int("rows", cfg.Rows),
		slog.Int("users", cfg.Users),
		slog.String("formats", strings.Join(cfg.Formats, ",")),
		slog.Bool("force", cfg.Force),
	)

	err = service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo seeder stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo seeder finished")
}
