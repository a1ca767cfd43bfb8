package curriculum

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
)

// Catalog is the subset of the configuration catalog the service reads.
type Catalog interface {
	ResolveGradeAlias(ctx context.Context, raw string, tenantID uuid.UUID) (string, bool)
	ActivePrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) string
}

// Service answers queries over ingested documents and their segments.
type Service struct {
	Logger     *slog.Logger
	DocsRepo   repository.DocumentRepository
	Generators llm.Source
	Catalog    Catalog
}

func NewService(logger *slog.Logger, docs repository.DocumentRepository, generators llm.Source, cat Catalog) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Logger: logger, DocsRepo: docs, Generators: generators, Catalog: cat}
}

// Documents lists the tenant's documents plus the global ones, newest first.
func (s *Service) Documents(ctx context.Context, tenantID uuid.UUID) ([]*entity.Document, error) {
	return s.DocsRepo.ListVisible(ctx, tenantID)
}

// Document returns a document if the tenant can see it.
func (s *Service) Document(ctx context.Context, tenantID, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.DocsRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID && !doc.IsGlobal() {
		return nil, common.NotFoundf("document %s not found", id)
	}
	return doc, nil
}

// DeleteDocument removes a document with its segments. Tenants may only delete
// their own documents; global documents are deleted with uuid.Nil.
func (s *Service) DeleteDocument(ctx context.Context, tenantID, id uuid.UUID) error {
	doc, err := s.DocsRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.TenantID != tenantID {
		if doc.IsGlobal() {
			return common.NewAppError("FORBIDDEN", "global documents cannot be deleted by a tenant", common.ErrForbidden)
		}
		return common.NotFoundf("document %s not found", id)
	}
	if err := s.DocsRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("curriculum.document.deleted", "document_id", id, "tenant_id", tenantID)
	return nil
}

// SegmentQuery selects segments for one grade. A zero LimitPerDocument means no cap.
type SegmentQuery struct {
	TenantID          uuid.UUID
	Documents         []*entity.Document
	Grade             string
	LimitPerDocument  int
	FallbackToGeneral bool
}

// SegmentsForGrade returns the segments of the ready documents that match the
// grade. When none match it falls back to general segments (if allowed) and
// then to every segment. Results are ordered by document, area and start line.
func (s *Service) SegmentsForGrade(ctx context.Context, q SegmentQuery) ([]entity.Segment, error) {
	var ids []uuid.UUID
	for _, d := range q.Documents {
		if d != nil && d.Ready() {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := s.DocsRepo.Segments(ctx, ids)
	if err != nil {
		return nil, err
	}

	if grade := strings.TrimSpace(q.Grade); grade != "" {
		labels := map[string]struct{}{grade: {}}
		if s.Catalog != nil {
			if n, ok := s.Catalog.ResolveGradeAlias(ctx, grade, q.TenantID); ok {
				labels[n] = struct{}{}
			}
		}
		specific := filterSegments(all, q.LimitPerDocument, func(seg entity.Segment) bool {
			if seg.GradeLabel == nil {
				return false
			}
			_, ok := labels[*seg.GradeLabel]
			return ok
		})
		if len(specific) > 0 {
			return specific, nil
		}
	}
	if q.FallbackToGeneral {
		general := filterSegments(all, q.LimitPerDocument, func(seg entity.Segment) bool { return seg.GradeLabel == nil })
		if len(general) > 0 {
			return general, nil
		}
	}
	return filterSegments(all, q.LimitPerDocument, func(entity.Segment) bool { return true }), nil
}

func filterSegments(segs []entity.Segment, limit int, keep func(entity.Segment) bool) []entity.Segment {
	var out []entity.Segment
	perDoc := map[uuid.UUID]int{}
	for _, seg := range segs {
		if !keep(seg) {
			continue
		}
		if limit > 0 && perDoc[seg.DocumentID] >= limit {
			continue
		}
		perDoc[seg.DocumentID]++
		out = append(out, seg)
	}
	return out
}
