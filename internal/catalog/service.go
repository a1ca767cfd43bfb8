package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

// Notifier tells other processes that the catalog changed.
type Notifier interface {
	Publish(ctx context.Context) error
}

// Service applies catalog writes, then invalidates the local cache and notifies peers.
type Service struct {
	writer   Writer
	catalog  *Catalog
	notifier Notifier
	logger   *slog.Logger
}

func NewService(w Writer, cat *Catalog, n Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{writer: w, catalog: cat, notifier: n, logger: logger}
}

func (s *Service) PutGradeAlias(ctx context.Context, tenantID uuid.UUID, alias, normalized string) error {
	alias = normalizeAliasKey(alias)
	normalized = strings.TrimSpace(normalized)
	v := common.NewValidator().
		Field("alias", alias, common.Required, common.MaxLen(120)).
		Field("normalized_value", normalized, common.Required, common.MaxLen(20))
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}
	row := entity.GradeAlias{TenantID: tenantID, Alias: alias, NormalizedValue: normalized}
	if err := s.writer.UpsertGradeAlias(ctx, row); err != nil {
		return fmt.Errorf("upsert grade alias: %w", err)
	}
	s.changed(ctx, "grade_alias", tenantID)
	return nil
}

func (s *Service) PutAreaKeyword(ctx context.Context, tenantID uuid.UUID, label, pattern string) error {
	label = strings.TrimSpace(label)
	v := common.NewValidator().
		Field("label", label, common.Required, common.MaxLen(255)).
		Field("pattern", pattern, common.Required)
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return common.InvalidInputf("pattern does not compile: %v", err)
	}
	row := entity.AreaKeyword{TenantID: tenantID, Label: label, Pattern: pattern}
	if err := s.writer.UpsertAreaKeyword(ctx, row); err != nil {
		return fmt.Errorf("upsert area keyword: %w", err)
	}
	s.changed(ctx, "area_keyword", tenantID)
	return nil
}

func (s *Service) PutPrompt(ctx context.Context, tenantID uuid.UUID, promptContext, text string, active bool) error {
	promptContext = strings.TrimSpace(promptContext)
	v := common.NewValidator().
		Field("context", promptContext, common.Required, common.MaxLen(120)).
		Field("text", text, common.Required)
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}
	row := entity.Prompt{TenantID: tenantID, Context: promptContext, Text: text, Active: active, UpdatedAt: time.Now().UTC()}
	if err := s.writer.UpsertPrompt(ctx, row); err != nil {
		return fmt.Errorf("upsert prompt: %w", err)
	}
	s.changed(ctx, "prompt", tenantID)
	return nil
}

func (s *Service) changed(ctx context.Context, kind string, tenantID uuid.UUID) {
	s.logger.Info("catalog.write", "kind", kind, "tenant_id", tenantID)
	if s.catalog != nil {
		s.catalog.Invalidate()
	}
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx); err != nil {
			s.logger.Warn("catalog.notify_failed", "kind", kind, "error", err)
		}
	}
}
