package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/curriculum"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/export"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DocumentHandler struct {
	log        *slog.Logger
	ingest     *ingest.Pipeline
	curriculum *curriculum.Service
	export     *export.Service
	maxUpload  int64
}

func NewDocumentHandler(log *slog.Logger, in *ingest.Pipeline, cur *curriculum.Service, ex *export.Service, maxUploadMB int) *DocumentHandler {
	if log == nil {
		log = slog.Default()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &DocumentHandler{
		log:        log.With("handler", "DocumentHandler"),
		ingest:     in,
		curriculum: cur,
		export:     ex,
		maxUpload:  int64(maxUploadMB) << 20,
	}
}

type documentTextRequest struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	Jurisdiction string `json:"jurisdiction"`
	Year         *int   `json:"year"`
	GradeMin     string `json:"grade_min"`
	GradeMax     string `json:"grade_max"`
}

// UploadFailure is returned when a document was stored but could not be
// turned into segments.
type UploadFailure struct {
	Error    APIError       `json:"error"`
	Document ingest.Outcome `json:"document"`
}

// Upload ingests a multipart "file" upload or a JSON body carrying text.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID := tenantOf(c)
	ctx := c.Request.Context()

	var (
		out ingest.Outcome
		err error
	)
	if isMultipart(c) {
		var up upload
		up, err = readUpload(c, h.maxUpload)
		if err != nil {
			respondErr(c, err)
			return
		}
		meta, merr := formMetadata(c, tenantID)
		if merr != nil {
			respondErr(c, merr)
			return
		}
		h.log.Info("document upload", "tenant_id", tenantID, "filename", up.Filename, "bytes", len(up.Data))
		out, err = h.ingest.IngestFile(ctx, ingest.FileRequest{Metadata: meta, Data: up.Data, Filename: up.Filename, MimeType: up.MimeType})
	} else {
		var req documentTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
			return
		}
		meta := ingest.Metadata{
			TenantID:     tenantID,
			Title:        req.Title,
			Jurisdiction: req.Jurisdiction,
			Year:         req.Year,
			GradeMin:     req.GradeMin,
			GradeMax:     req.GradeMax,
		}
		if verr := validateMetadata(meta); verr != nil {
			respondErr(c, verr)
			return
		}
		out, err = h.ingest.IngestText(ctx, ingest.TextRequest{Metadata: meta, Text: req.Text})
	}

	switch {
	case err != nil && out.DocumentID != uuid.Nil && ingest.IsExtractionError(err):
		c.JSON(http.StatusUnprocessableEntity, UploadFailure{
			Error:    APIError{Message: err.Error(), Code: "TEXT_EXTRACTION_FAILED"},
			Document: out,
		})
	case err != nil:
		respondErr(c, err)
	case out.Status == constants.DocumentStatusError:
		c.JSON(http.StatusUnprocessableEntity, UploadFailure{
			Error:    APIError{Message: out.ErrorMessage, Code: "SEGMENTATION_FAILED"},
			Document: out,
		})
	default:
		c.JSON(http.StatusCreated, out)
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.curriculum.Documents(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	RespondOK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.curriculum.Document(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.curriculum.DeleteDocument(c.Request.Context(), tenantOf(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) ExportSegments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, err := h.export.ExportSegmentsXLSX(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	attachment(c, fmt.Sprintf("segmentos-%s.xlsx", id), data)
}

// Suggestions returns AI suggestions per area for one grade of the document.
func (h *DocumentHandler) Suggestions(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	grade := strings.TrimSpace(c.Query("grade"))
	if grade == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("grade is required"))
		return
	}
	ctx := c.Request.Context()
	doc, err := h.curriculum.Document(ctx, tenantOf(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !doc.Ready() {
		RespondError(c, http.StatusConflict, "DOCUMENT_NOT_READY", errors.New("document is not ready"))
		return
	}
	areas := h.curriculum.GradeSuggestions(ctx, doc, grade)
	if areas == nil {
		areas = []curriculum.AreaSuggestions{}
	}
	RespondOK(c, gin.H{"document_id": doc.ID, "grade": grade, "areas": areas})
}

// Segments answers ?grade=&document_id=&limit_per_doc=&fallback= over the
// documents visible to the tenant.
func (h *DocumentHandler) Segments(c *gin.Context) {
	limit, err := intQuery(c, "limit_per_doc", 0)
	if err != nil {
		respondErr(c, err)
		return
	}
	fallback := true
	if raw := c.Query("fallback"); raw != "" {
		if fallback, err = strconv.ParseBool(raw); err != nil {
			respondErr(c, common.InvalidInputf("fallback must be a boolean"))
			return
		}
	}
	ctx := c.Request.Context()
	tenantID := tenantOf(c)
	docs, err := h.documents(c, c.QueryArray("document_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	segments, err := h.curriculum.SegmentsForGrade(ctx, curriculum.SegmentQuery{
		TenantID:          tenantID,
		Documents:         docs,
		Grade:             c.Query("grade"),
		LimitPerDocument:  limit,
		FallbackToGeneral: fallback,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	if segments == nil {
		segments = []entity.Segment{}
	}
	RespondOK(c, gin.H{"segments": segments})
}

type enrichmentRequest struct {
	PlanName          string   `json:"plan_name"`
	Grade             string   `json:"grade"`
	DocumentIDs       []string `json:"document_ids"`
	LimitPerDocument  int      `json:"limit_per_doc"`
	IncludeObjectives bool     `json:"include_objectives"`
}

// Enrichment summarizes the grade's segments for a plan.
func (h *DocumentHandler) Enrichment(c *gin.Context) {
	var req enrichmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	v := common.NewValidator().
		Field("plan_name", req.PlanName, common.Required, common.MaxLen(255)).
		Field("grade", req.Grade, common.Required, common.MaxLen(60))
	if err := common.ValidateAndReturnError(v); err != nil {
		respondErr(c, err)
		return
	}
	ctx := c.Request.Context()
	tenantID := tenantOf(c)
	docs, err := h.documents(c, req.DocumentIDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	segments, err := h.curriculum.SegmentsForGrade(ctx, curriculum.SegmentQuery{
		TenantID:          tenantID,
		Documents:         docs,
		Grade:             req.Grade,
		LimitPerDocument:  req.LimitPerDocument,
		FallbackToGeneral: true,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	res := h.curriculum.PlanEnrichment(ctx, curriculum.EnrichmentRequest{
		TenantID:          tenantID,
		PlanName:          req.PlanName,
		GradeName:         req.Grade,
		Segments:          segments,
		IncludeObjectives: req.IncludeObjectives,
	})
	RespondOK(c, gin.H{"enrichment": res, "segments_used": len(segments)})
}

// documents resolves explicit ids, or every visible document when none are given.
func (h *DocumentHandler) documents(c *gin.Context, rawIDs []string) ([]*entity.Document, error) {
	ctx := c.Request.Context()
	tenantID := tenantOf(c)
	if len(rawIDs) == 0 {
		return h.curriculum.Documents(ctx, tenantID)
	}
	docs := make([]*entity.Document, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, common.InvalidInputf("document_id %q must be a UUID", raw)
		}
		doc, err := h.curriculum.Document(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type upload struct {
	Data     []byte
	Filename string
	MimeType string
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// readUpload reads the "file" part of a multipart body capped at maxBytes.
func readUpload(c *gin.Context, maxBytes int64) (upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, err
		}
		return upload{}, common.InvalidInputf("file is required: %v", err)
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, common.WrapError(err, "open upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, common.WrapError(err, "read upload")
	}
	return upload{Data: data, Filename: fh.Filename, MimeType: fh.Header.Get("Content-Type")}, nil
}

func formMetadata(c *gin.Context, tenantID uuid.UUID) (ingest.Metadata, error) {
	meta := ingest.Metadata{
		TenantID:     tenantID,
		Title:        c.PostForm("title"),
		Jurisdiction: c.PostForm("jurisdiction"),
		GradeMin:     c.PostForm("grade_min"),
		GradeMax:     c.PostForm("grade_max"),
	}
	if raw := strings.TrimSpace(c.PostForm("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return meta, common.InvalidInputf("year must be a number")
		}
		meta.Year = &year
	}
	return meta, validateMetadata(meta)
}

func validateMetadata(meta ingest.Metadata) error {
	v := common.NewValidator().
		Field("title", meta.Title, common.MaxLen(255)).
		Field("jurisdiction", meta.Jurisdiction, common.MaxLen(120)).
		Field("year", meta.Year, common.YearRange(1900, 2100)).
		Field("grade_min", meta.GradeMin, common.MaxLen(20)).
		Field("grade_max", meta.GradeMax, common.MaxLen(20))
	return common.ValidateAndReturnError(v)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.InvalidInputf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
