package planparse

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
)

// Pipeline persists extracted items for plans and plan documents.
type Pipeline struct {
	Logger    *slog.Logger
	Plans     repository.PlanRepository
	Documents repository.DocumentRepository
	Extractor *Extractor
}

func NewPipeline(logger *slog.Logger, plans repository.PlanRepository, docs repository.DocumentRepository, ex *Extractor) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, Plans: plans, Documents: docs, Extractor: ex}
}

type ParseOptions struct {
	ChunkSize     int
	ResetPrevious bool
}

// ParsePlan extracts items from the plan's raw text and stores them. It returns
// the number of items created; a plan without text yields zero.
func (p *Pipeline) ParsePlan(ctx context.Context, planID uuid.UUID, opts ParseOptions) (int, error) {
	plan, err := p.Plans.GetPlan(ctx, planID)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(plan.RawText)
	if text == "" {
		return 0, nil
	}
	items := p.Extractor.ExtractItems(ctx, ExtractRequest{Text: text, TenantID: plan.TenantID, MaxChars: opts.ChunkSize})
	n, err := p.Plans.ReplaceItems(ctx, plan.ID, nil, items, opts.ResetPrevious)
	if err != nil {
		return 0, err
	}
	p.Logger.Info("planparse.plan.parsed", "plan_id", plan.ID, "items", n, "reset", opts.ResetPrevious)
	return n, nil
}

// PersistRequest describes a plan document to (re)process. RawText overrides the
// attached document's text when set.
type PersistRequest struct {
	TenantID       uuid.UUID
	PlanDocumentID uuid.UUID
	StudyPlanID    *uuid.UUID
	Name           string
	AcademicYear   string
	Jurisdiction   string
	Description    string
	RawText        string
}

// PersistPlanDocument updates the owning plan and replaces the items of the plan document.
func (p *Pipeline) PersistPlanDocument(ctx context.Context, req PersistRequest) (*entity.Plan, int, error) {
	pd, err := p.Plans.GetPlanDocument(ctx, req.PlanDocumentID)
	if err != nil {
		return nil, 0, err
	}
	if pd.TenantID != req.TenantID {
		return nil, 0, common.NotFoundf("plan document %s not found", req.PlanDocumentID)
	}

	text := strings.TrimSpace(req.RawText)
	if text == "" {
		doc, err := p.Documents.Get(ctx, pd.DocumentID)
		if err != nil {
			return nil, 0, err
		}
		text = strings.TrimSpace(doc.RawText)
	}
	if text == "" {
		return nil, 0, common.InvalidInputf("plan content is empty")
	}

	items := p.Extractor.ExtractItems(ctx, ExtractRequest{Text: text, TenantID: req.TenantID, PlanDocumentID: &pd.ID})

	plan, err := p.Plans.GetPlan(ctx, pd.PlanID)
	if err != nil {
		return nil, 0, err
	}
	applyPlanFields(plan, req, text)
	if err := p.Plans.SavePlan(ctx, plan); err != nil {
		return nil, 0, err
	}

	n, err := p.Plans.ReplaceItems(ctx, plan.ID, &pd.ID, items, true)
	if err != nil {
		return nil, 0, err
	}
	p.Logger.Info("planparse.document.persisted", "plan_id", plan.ID, "plan_document_id", pd.ID, "items", n)
	return plan, n, nil
}

func applyPlanFields(plan *entity.Plan, req PersistRequest, text string) {
	if req.StudyPlanID != nil {
		plan.StudyPlanID = req.StudyPlanID
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		plan.Name = name
	} else if plan.Name == "" {
		plan.Name = constants.DefaultPlanName
	}
	plan.AcademicYear = optional(req.AcademicYear)
	plan.Jurisdiction = optional(req.Jurisdiction)
	plan.Description = optional(req.Description)
	plan.RawText = text
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// NewPlan is the input of CreatePlan.
type NewPlan struct {
	TenantID     uuid.UUID
	StudyPlanID  *uuid.UUID
	Name         string
	AcademicYear string
	Jurisdiction string
	Description  string
	RawText      string
}

// CreatePlan stores a plan without extracting anything yet.
func (p *Pipeline) CreatePlan(ctx context.Context, in NewPlan) (*entity.Plan, error) {
	plan := &entity.Plan{TenantID: in.TenantID}
	applyPlanFields(plan, PersistRequest{
		StudyPlanID:  in.StudyPlanID,
		Name:         in.Name,
		AcademicYear: in.AcademicYear,
		Jurisdiction: in.Jurisdiction,
		Description:  in.Description,
	}, strings.TrimSpace(in.RawText))
	if err := p.Plans.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// AttachDocument links a ready document visible to the tenant to one of its plans.
func (p *Pipeline) AttachDocument(ctx context.Context, tenantID, planID, documentID uuid.UUID, subjectHint string) (*entity.PlanDocument, error) {
	plan, err := p.Plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.TenantID != tenantID {
		return nil, common.NotFoundf("plan %s not found", planID)
	}
	doc, err := p.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID && !doc.IsGlobal() {
		return nil, common.NotFoundf("document %s not found", documentID)
	}
	if !doc.Ready() {
		return nil, common.NewAppError("DOCUMENT_NOT_READY", "document is not ready", common.ErrConflict)
	}
	pd := &entity.PlanDocument{
		PlanID:           plan.ID,
		TenantID:         tenantID,
		DocumentID:       doc.ID,
		Title:            doc.Title,
		OriginalFilename: doc.SourceFilename,
		SubjectHint:      optional(subjectHint),
	}
	if err := p.Plans.CreatePlanDocument(ctx, pd); err != nil {
		return nil, err
	}
	return pd, nil
}
