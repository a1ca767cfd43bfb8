package planparse

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
)

// GradeResolver normalizes grade labels with the tenant's aliases.
type GradeResolver interface {
	ResolveGradeAlias(ctx context.Context, raw string, tenantID uuid.UUID) (string, bool)
}

// Config holds the window sizes.
type Config struct {
	MaxChars int
	Overlap  int
}

// ExtractRequest is one document to run through the model. MaxChars overrides
// the configured window size when positive.
type ExtractRequest struct {
	Text           string
	TenantID       uuid.UUID
	PlanDocumentID *uuid.UUID
	MaxChars       int
}

// Extractor runs the model over every window and collects normalized items.
type Extractor struct {
	generators llm.Source
	grades     GradeResolver
	cfg        Config
	logger     *slog.Logger
}

func NewExtractor(generators llm.Source, grades GradeResolver, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = DefaultOverlap
	}
	return &Extractor{generators: generators, grades: grades, cfg: cfg, logger: logger}
}

// ExtractItems never fails: windows whose output cannot be used contribute no
// items. Windows run one after another in document order; a cancelled context
// stops the run with the items collected so far.
func (e *Extractor) ExtractItems(ctx context.Context, req ExtractRequest) []entity.PlanItem {
	maxChars := e.cfg.MaxChars
	if req.MaxChars > 0 {
		maxChars = req.MaxChars
	}
	windows := Chunk(req.Text, maxChars, e.cfg.Overlap)
	gen := e.generators.ForTenant(ctx, req.TenantID)
	normalize := func(raw string) (string, bool) {
		if e.grades == nil {
			return "", false
		}
		return e.grades.ResolveGradeAlias(ctx, raw, req.TenantID)
	}

	start := time.Now()
	var items []entity.PlanItem
	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("planparse.cancelled", "window", i, "windows", len(windows), "error", err)
			break
		}
		items = append(items, e.window(ctx, gen, window, i, req.PlanDocumentID, normalize)...)
	}

	e.logger.Info("planparse.extract.done",
		"tenant_id", req.TenantID,
		"windows", len(windows),
		"items", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items
}

func (e *Extractor) window(ctx context.Context, gen llm.Generator, fragment string, index int, planDocumentID *uuid.UUID, normalize gradeNormalizer) (items []entity.PlanItem) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("planparse.window.panic", "window", index, "panic", r)
			items = nil
		}
	}()

	input := map[string]any{"fragment_index": index, "plan_document_id": nil}
	if planDocumentID != nil {
		input["plan_document_id"] = planDocumentID.String()
	}
	res := gen.Generate(ctx, BuildPrompt(fragment, index), input)

	payloads := ParseResponse(res.Text)
	if len(payloads) == 0 {
		e.logger.Debug("planparse.window.empty", "window", index, "provider", res.Provider)
		return nil
	}
	for _, p := range payloads {
		item, ok := normalizeItem(p, index, normalize)
		if !ok {
			continue
		}
		if err := validateItem(item); err != nil {
			e.logger.Warn("planparse.item.invalid", "window", index, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}
