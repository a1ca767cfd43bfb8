// Package app wires the repositories, pipelines and services shared by the
// daemon and the command line tool.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/curriculum"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/export"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm/openai"
	processor "github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline/planparse"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/segment"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/server"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/textextract"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger
	DB     *repository.DB

	Documents repository.DocumentRepository
	PlansRepo repository.PlanRepository
	Settings  repository.SettingsRepository
	CatalogDB repository.CatalogRepository

	Catalog        *catalog.Catalog
	CatalogService *catalog.Service
	Notifier       *catalog.RedisNotifier
	Generators     *llm.TenantRouter

	Extractor  *textextract.Extractor
	Segmenter  *segment.Engine
	Ingest     *ingest.Pipeline
	Plans      *planparse.Pipeline
	Processor  *processor.Processor
	Curriculum *curriculum.Service
	Export     *export.Service

	redis *goredis.Client
}

// New opens the database and builds every component. The caller owns Close.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: db}

	a.Documents = repository.NewDocumentRepository(db, logger)
	a.PlansRepo = repository.NewPlanRepository(db, logger)
	a.Settings = repository.NewSettingsRepository(db, logger)
	a.CatalogDB = repository.NewCatalogRepository(db, logger)

	a.Catalog = catalog.New(a.CatalogDB, logger)
	var notifier catalog.Notifier
	if cfg.Redis.Addr != "" {
		a.redis = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		a.Notifier = catalog.NewRedisNotifier(a.redis, cfg.Redis.Channel, logger)
		notifier = a.Notifier
	}
	a.CatalogService = catalog.NewService(a.CatalogDB, a.Catalog, notifier, logger)

	completer := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	base := llm.NewClient(cfg.LLM, completer, logger)
	a.Generators = llm.NewTenantRouter(base, a.tenantOverride, logger)
	logger.Info("llm.configured", "provider", base.Provider(), "model", base.Model())

	a.Extractor = textextract.NewExtractor(textextract.Config{Pdftotext: cfg.Extract.Pdftotext}, logger)
	a.Segmenter = segment.NewEngine(a.Catalog, logger)
	a.Ingest = ingest.NewPipeline(logger, a.Documents, a.Extractor, a.Segmenter)

	ex := planparse.NewExtractor(a.Generators, a.Catalog, planparse.Config{
		MaxChars: cfg.Chunking.MaxChars,
		Overlap:  cfg.Chunking.Overlap,
	}, logger)
	a.Plans = planparse.NewPipeline(logger, a.PlansRepo, a.Documents, ex)
	a.Processor = processor.NewProcessor(logger, a.Ingest, a.Plans)
	a.Curriculum = curriculum.NewService(logger, a.Documents, a.Generators, a.Catalog)
	a.Export = export.NewService(a.PlansRepo, a.Documents, logger)
	return a, nil
}

func (a *App) tenantOverride(ctx context.Context, tenantID uuid.UUID) (llm.Override, error) {
	s, err := a.Settings.Get(ctx, tenantID)
	if err != nil {
		return llm.Override{}, err
	}
	return llm.Override{Provider: s.AIProvider, Model: s.AIModel}, nil
}

// ListenCatalog drops the local catalog cache whenever another process writes.
// Without Redis it does nothing.
func (a *App) ListenCatalog(ctx context.Context) error {
	if a.Notifier == nil {
		return nil
	}
	return a.Notifier.Listen(ctx, a.Catalog)
}

// Seed writes the built-in catalog without overwriting existing rows.
func (a *App) Seed(ctx context.Context) error {
	if err := catalog.SeedDefaults(ctx, repository.NewCatalogSeeder(a.DB, a.Logger)); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	a.Catalog.Invalidate()
	return nil
}

// RouterConfig returns the request handlers backed by this app.
func (a *App) RouterConfig() server.RouterConfig {
	cfg := a.Config
	return server.RouterConfig{
		Logger:          a.Logger,
		DocumentHandler: server.NewDocumentHandler(a.Logger, a.Ingest, a.Curriculum, a.Export, cfg.Server.MaxUploadMB),
		PlanHandler:     server.NewPlanHandler(a.Logger, a.Plans, a.PlansRepo, a.Processor, a.Export, cfg.Chunking.MaxChars, cfg.Server.MaxUploadMB),
		CatalogHandler:  server.NewCatalogHandler(a.Logger, a.CatalogService),
		SettingsHandler: server.NewSettingsHandler(a.Logger, a.Settings),
		HealthHandler:   server.NewHealthHandler(a.DB),
	}
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err)
		}
	}
	a.DB.Close(a.Logger)
}

// NewLogger builds the process logger. format is "json" or "text"; level is a
// slog level name and defaults to info.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
