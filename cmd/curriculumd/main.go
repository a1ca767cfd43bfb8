package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/app"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/server"
)

func main() {
	// .env is optional; real environment variables win.
	envErr := godotenv.Load()

	logger := app.NewLogger(os.Stderr, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("dotenv load failed", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("curriculumd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg := common.LoadConfig(logger)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DB.Migrate(ctx); err != nil {
		return err
	}
	if err := a.Seed(ctx); err != nil {
		return err
	}
	logger.Info("DB ready", "driver", cfg.Database.Driver)

	// Without Redis each process only sees its own catalog writes.
	if err := a.ListenCatalog(ctx); err != nil {
		logger.Warn("catalog listener unavailable", "error", err)
	}

	return server.NewServer(cfg.Server.HTTPAddr, a.RouterConfig()).Run(ctx)
}
