package processor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline/planparse"
)

// Processor coordinates document ingestion, then plan item extraction.
type Processor struct {
	Logger *slog.Logger
	Ingest *ingest.Pipeline
	Plans  *planparse.Pipeline
}

func NewProcessor(logger *slog.Logger, in *ingest.Pipeline, plans *planparse.Pipeline) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Ingest: in, Plans: plans}
}

// PlanUpload is a curriculum file uploaded for a plan. A nil PlanID creates a
// new plan named after Plan.Name.
type PlanUpload struct {
	TenantID    uuid.UUID
	PlanID      *uuid.UUID
	File        ingest.FileRequest
	SubjectHint string
	Plan        planparse.NewPlan
}

type PlanUploadResult struct {
	Document     ingest.Outcome       `json:"document"`
	Plan         *entity.Plan         `json:"plan,omitempty"`
	PlanDocument *entity.PlanDocument `json:"plan_document,omitempty"`
	ItemsCreated int                  `json:"items_created"`
}

// ProcessPlanUpload ingests the file for the tenant, attaches the document to
// the plan and replaces the plan document's items. A document that does not
// reach the ready state stops the run with a conflict error.
func (p *Processor) ProcessPlanUpload(ctx context.Context, up PlanUpload) (PlanUploadResult, error) {
	var res PlanUploadResult

	// 1) ingest → document row + segments
	up.File.TenantID = up.TenantID
	out, err := p.Ingest.IngestFile(ctx, up.File)
	res.Document = out
	if err != nil {
		p.Logger.Error("processor.ingest.failed", "tenant_id", up.TenantID, "filename", up.File.Filename, "err", err)
		return res, err
	}
	if out.Status != constants.DocumentStatusReady {
		p.Logger.Warn("processor.ingest.not_ready", "document_id", out.DocumentID, "error", out.ErrorMessage)
		return res, common.NewAppError("DOCUMENT_NOT_READY", out.ErrorMessage, common.ErrConflict)
	}
	p.Logger.Info("processor.ingest.ok", "document_id", out.DocumentID, "segments", out.SegmentCount)

	// 2) plan + attachment
	planID, err := p.resolvePlan(ctx, up)
	if err != nil {
		return res, err
	}
	pd, err := p.Plans.AttachDocument(ctx, up.TenantID, planID, out.DocumentID, up.SubjectHint)
	if err != nil {
		p.Logger.Error("processor.attach.failed", "plan_id", planID, "document_id", out.DocumentID, "err", err)
		return res, err
	}
	res.PlanDocument = pd

	// 3) chunked extraction → plan items
	plan, n, err := p.Plans.PersistPlanDocument(ctx, planparse.PersistRequest{
		TenantID:       up.TenantID,
		PlanDocumentID: pd.ID,
		StudyPlanID:    up.Plan.StudyPlanID,
		Name:           up.Plan.Name,
		AcademicYear:   up.Plan.AcademicYear,
		Jurisdiction:   up.Plan.Jurisdiction,
		Description:    up.Plan.Description,
	})
	if err != nil {
		p.Logger.Error("processor.parse.failed", "plan_document_id", pd.ID, "err", err)
		return res, err
	}
	res.Plan, res.ItemsCreated = plan, n
	p.Logger.Info("processor.parse.ok", "plan_id", plan.ID, "plan_document_id", pd.ID, "items", n)
	return res, nil
}

func (p *Processor) resolvePlan(ctx context.Context, up PlanUpload) (uuid.UUID, error) {
	if up.PlanID != nil {
		return *up.PlanID, nil
	}
	in := up.Plan
	in.TenantID = up.TenantID
	plan, err := p.Plans.CreatePlan(ctx, in)
	if err != nil {
		return uuid.Nil, err
	}
	return plan.ID, nil
}
