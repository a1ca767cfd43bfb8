package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/export"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
	processor "github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline/planparse"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
)

type PlanHandler struct {
	log       *slog.Logger
	plans     *planparse.Pipeline
	plansRepo repository.PlanRepository
	processor *processor.Processor
	export    *export.Service
	chunkSize int
	maxUpload int64
}

func NewPlanHandler(log *slog.Logger, plans *planparse.Pipeline, repo repository.PlanRepository, proc *processor.Processor, ex *export.Service, chunkSize, maxUploadMB int) *PlanHandler {
	if log == nil {
		log = slog.Default()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &PlanHandler{
		log:       log.With("handler", "PlanHandler"),
		plans:     plans,
		plansRepo: repo,
		processor: proc,
		export:    ex,
		chunkSize: chunkSize,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

type planRequest struct {
	StudyPlanID  string `json:"study_plan_id"`
	Name         string `json:"name"`
	AcademicYear string `json:"academic_year"`
	Jurisdiction string `json:"jurisdiction"`
	Description  string `json:"description"`
	RawText      string `json:"raw_text"`
}

func (r planRequest) studyPlan() (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.StudyPlanID)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, common.InvalidInputf("study_plan_id must be a UUID")
	}
	return &id, nil
}

func (r planRequest) validate() error {
	v := common.NewValidator().
		Field("name", r.Name, common.MaxLen(255)).
		Field("academic_year", r.AcademicYear, common.MaxLen(20)).
		Field("jurisdiction", r.Jurisdiction, common.MaxLen(120))
	return common.ValidateAndReturnError(v)
}

// Create stores a plan from text. A plan already linked to the same study
// plan is returned instead of creating a second one.
func (h *PlanHandler) Create(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	if err := req.validate(); err != nil {
		respondErr(c, err)
		return
	}
	studyPlanID, err := req.studyPlan()
	if err != nil {
		respondErr(c, err)
		return
	}
	ctx := c.Request.Context()
	tenantID := tenantOf(c)

	if studyPlanID != nil {
		existing, err := h.plansRepo.FindByStudyPlan(ctx, tenantID, *studyPlanID)
		switch {
		case err == nil:
			RespondOK(c, existing)
			return
		case !errors.Is(err, common.ErrNotFound):
			respondErr(c, err)
			return
		}
	}

	plan, err := h.plans.CreatePlan(ctx, planparse.NewPlan{
		TenantID:     tenantID,
		StudyPlanID:  studyPlanID,
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Jurisdiction: req.Jurisdiction,
		Description:  req.Description,
		RawText:      req.RawText,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	h.log.Info("plan created", "plan_id", plan.ID, "tenant_id", tenantID)
	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plansRepo.ListPlans(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if plans == nil {
		plans = []*entity.Plan{}
	}
	RespondOK(c, gin.H{"plans": plans})
}

type parseRequest struct {
	ChunkSize     int  `json:"chunk_size"`
	ResetPrevious bool `json:"reset_previous"`
}

// Parse extracts items from the plan's own text.
func (h *PlanHandler) Parse(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}
	var req parseRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.ChunkSize < 0 {
		respondErr(c, common.InvalidInputf("chunk_size must not be negative"))
		return
	}
	if req.ChunkSize == 0 {
		req.ChunkSize = h.chunkSize
	}
	n, err := h.plans.ParsePlan(c.Request.Context(), plan.ID, planparse.ParseOptions{
		ChunkSize:     req.ChunkSize,
		ResetPrevious: req.ResetPrevious,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"plan_id": plan.ID, "items_created": n})
}

// UploadDocument ingests a curriculum file, attaches it to the plan and
// extracts its items.
func (h *PlanHandler) UploadDocument(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}
	if !isMultipart(c) {
		RespondError(c, http.StatusUnsupportedMediaType, "MULTIPART_REQUIRED", errors.New("multipart/form-data with a file part is required"))
		return
	}
	up, err := readUpload(c, h.maxUpload)
	if err != nil {
		respondErr(c, err)
		return
	}
	meta, err := formMetadata(c, plan.TenantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := h.processor.ProcessPlanUpload(c.Request.Context(), processor.PlanUpload{
		TenantID:    plan.TenantID,
		PlanID:      &plan.ID,
		File:        ingest.FileRequest{Metadata: meta, Data: up.Data, Filename: up.Filename, MimeType: up.MimeType},
		SubjectHint: c.PostForm("subject_hint"),
		Plan: planparse.NewPlan{
			Name:         orValue(c.PostForm("plan_name"), plan.Name),
			AcademicYear: orPtr(c.PostForm("academic_year"), plan.AcademicYear),
			Jurisdiction: orPtr(c.PostForm("jurisdiction"), plan.Jurisdiction),
			Description:  orPtr(c.PostForm("description"), plan.Description),
			StudyPlanID:  plan.StudyPlanID,
		},
	})
	if err != nil {
		if res.Document.DocumentID != uuid.Nil {
			status, code := errorStatus(err)
			c.JSON(status, UploadFailure{Error: APIError{Message: err.Error(), Code: code}, Document: res.Document})
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PlanHandler) Documents(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}
	docs, err := h.plansRepo.ListPlanDocuments(c.Request.Context(), plan.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if docs == nil {
		docs = []*entity.PlanDocument{}
	}
	RespondOK(c, gin.H{"plan_documents": docs})
}

// ProcessDocument re-runs extraction for one attached document, optionally
// with replacement text, and updates the plan fields.
func (h *PlanHandler) ProcessDocument(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}
	pdID, ok := uuidParam(c, "pdid")
	if !ok {
		return
	}
	var req planRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondErr(c, err)
		return
	}
	studyPlanID, err := req.studyPlan()
	if err != nil {
		respondErr(c, err)
		return
	}
	ctx := c.Request.Context()
	pd, err := h.plansRepo.GetPlanDocument(ctx, pdID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if pd.PlanID != plan.ID {
		respondErr(c, common.NotFoundf("plan document %s not found", pdID))
		return
	}
	updated, n, err := h.plans.PersistPlanDocument(ctx, planparse.PersistRequest{
		TenantID:       plan.TenantID,
		PlanDocumentID: pd.ID,
		StudyPlanID:    studyPlanID,
		Name:           orValue(req.Name, plan.Name),
		AcademicYear:   orPtr(req.AcademicYear, plan.AcademicYear),
		Jurisdiction:   orPtr(req.Jurisdiction, plan.Jurisdiction),
		Description:    orPtr(req.Description, plan.Description),
		RawText:        req.RawText,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": updated, "plan_document_id": pd.ID, "items_created": n})
}

func (h *PlanHandler) Items(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}
	items, err := h.plansRepo.ListItems(c.Request.Context(), plan.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if items == nil {
		items = []entity.PlanItem{}
	}
	RespondOK(c, gin.H{"items": items})
}

func (h *PlanHandler) Export(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, err := h.export.ExportPlanXLSX(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	attachment(c, fmt.Sprintf("plan-%s.xlsx", id), data)
}

// ownedPlan loads the :id plan and hides plans of other tenants.
func (h *PlanHandler) ownedPlan(c *gin.Context) (*entity.Plan, bool) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return nil, false
	}
	plan, err := h.plansRepo.GetPlan(c.Request.Context(), id)
	if err == nil && plan.TenantID != tenantOf(c) {
		err = common.NotFoundf("plan %s not found", id)
	}
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	return plan, true
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return false
	}
	return true
}

func orValue(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orPtr(v string, def *string) string {
	if strings.TrimSpace(v) == "" && def != nil {
		return *def
	}
	return v
}
