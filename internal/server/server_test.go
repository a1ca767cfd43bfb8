package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/curriculum"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/export"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
	processor "github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/pipeline/planparse"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/segment"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/textextract"
)

const curriculumText = "Tercer grado\nMATEMÁTICA\nfracciones\n\nCiencias Sociales\nlas familias"

const itemReply = `[{"grado":"3°","area":"Matemática","descripcion":"Operaciones con fracciones."}]`

type cannedGen struct {
	text string
}

func (g *cannedGen) ForTenant(context.Context, uuid.UUID) llm.Generator { return g }

func (g *cannedGen) Generate(context.Context, string, map[string]any) llm.Result {
	return llm.Result{Text: g.text, Provider: llm.ProviderHeuristic}
}

type testEnv struct {
	router *gin.Engine
	gen    *cannedGen
	docs   repository.DocumentRepository
	plans  repository.PlanRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))

	gen := &cannedGen{text: itemReply}
	catRepo := repository.NewCatalogRepository(db, nil)
	cat := catalog.New(catRepo, nil)
	docs := repository.NewDocumentRepository(db, nil)
	plans := repository.NewPlanRepository(db, nil)
	settings := repository.NewSettingsRepository(db, nil)

	in := ingest.NewPipeline(nil, docs, textextract.NewExtractor(textextract.Config{TempDir: t.TempDir()}, nil), segment.NewEngine(cat, nil))
	pp := planparse.NewPipeline(nil, plans, docs, planparse.NewExtractor(gen, cat, planparse.Config{}, nil))
	cur := curriculum.NewService(nil, docs, gen, cat)
	ex := export.NewService(plans, docs, nil)

	router := NewRouter(RouterConfig{
		DocumentHandler: NewDocumentHandler(nil, in, cur, ex, 1),
		PlanHandler:     NewPlanHandler(nil, pp, plans, processor.NewProcessor(nil, in, pp), ex, 6000, 1),
		CatalogHandler:  NewCatalogHandler(nil, catalog.NewService(catRepo, cat, nil, nil)),
		SettingsHandler: NewSettingsHandler(nil, settings),
		HealthHandler:   NewHealthHandler(db),
	})
	return &testEnv{router: router, gen: gen, docs: docs, plans: plans}
}

func (e *testEnv) do(t *testing.T, method, path string, tenant uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenant != uuid.Nil {
		req.Header.Set(HeaderTenantID, tenant.String())
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, path string, tenant uuid.UUID, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tenant != uuid.Nil {
		req.Header.Set(HeaderTenantID, tenant.String())
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestRequestContext_RejectsBadTenant(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/curriculum/documents", nil)
	req.Header.Set(HeaderTenantID, "not-a-uuid")
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "INVALID_TENANT", decode[ErrorEnvelope](t, w).Error.Code)
}

func TestDocuments_TextIngestAndQuery(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	w := env.do(t, http.MethodPost, "/api/curriculum/documents", tenant, map[string]any{
		"title": "Diseño 3°",
		"text":  curriculumText,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode[ingest.Outcome](t, w)
	assert.Equal(t, constants.DocumentStatusReady, out.Status)
	assert.Equal(t, 2, out.SegmentCount)

	w = env.do(t, http.MethodGet, "/api/curriculum/documents", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Documents []map[string]any `json:"documents"`
	}](t, w)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Diseño 3°", list.Documents[0]["title"])
	assert.Equal(t, "3", list.Documents[0]["grade_min"])

	w = env.do(t, http.MethodGet, "/api/curriculum/segments?grade=tercero&limit_per_doc=1", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	segs := decode[struct {
		Segments []map[string]any `json:"segments"`
	}](t, w)
	require.Len(t, segs.Segments, 1)
	assert.Equal(t, "3", segs.Segments[0]["grade_label"])

	// other tenants cannot see it
	w = env.do(t, http.MethodGet, "/api/curriculum/documents/"+out.DocumentID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorEnvelope](t, w).Error.Code)

	w = env.do(t, http.MethodGet, "/api/curriculum/segments?limit_per_doc=-1", tenant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocuments_InvalidMetadata(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/curriculum/documents", uuid.New(), map[string]any{"text": "x", "year": 1200})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode[ErrorEnvelope](t, w).Error.Code)
}

func TestDocuments_MultipartUpload(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	w := env.upload(t, "/api/curriculum/documents", tenant, "diseño.txt", []byte(curriculumText), map[string]string{"year": "2024"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode[ingest.Outcome](t, w)
	doc, err := env.docs.Get(context.Background(), out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "diseño.txt", doc.Title)
	require.NotNil(t, doc.Year)
	assert.Equal(t, 2024, *doc.Year)

	w = env.upload(t, "/api/curriculum/documents", tenant, "scan.png", []byte{0x89, 'P', 'N', 'G'}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	failure := decode[UploadFailure](t, w)
	assert.Equal(t, "TEXT_EXTRACTION_FAILED", failure.Error.Code)
	assert.Equal(t, constants.DocumentStatusError, failure.Document.Status)
	assert.NotEqual(t, uuid.Nil, failure.Document.DocumentID)
}

func TestDocuments_Delete(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	global := decode[ingest.Outcome](t, env.do(t, http.MethodPost, "/api/curriculum/documents", uuid.Nil, map[string]any{"text": curriculumText}))
	own := decode[ingest.Outcome](t, env.do(t, http.MethodPost, "/api/curriculum/documents", tenant, map[string]any{"text": curriculumText}))

	w := env.do(t, http.MethodDelete, "/api/curriculum/documents/"+global.DocumentID.String(), tenant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode[ErrorEnvelope](t, w).Error.Code)

	w = env.do(t, http.MethodDelete, "/api/curriculum/documents/"+own.DocumentID.String(), tenant, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/curriculum/documents/nope", tenant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocuments_SegmentsExport(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()
	out := decode[ingest.Outcome](t, env.do(t, http.MethodPost, "/api/curriculum/documents", tenant, map[string]any{"text": curriculumText}))

	w := env.do(t, http.MethodGet, "/api/curriculum/documents/"+out.DocumentID.String()+"/segments.xlsx", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "segmentos-")
	assert.Equal(t, "PK", w.Body.String()[:2])
}

func TestDocuments_Suggestions(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()
	out := decode[ingest.Outcome](t, env.do(t, http.MethodPost, "/api/curriculum/documents", tenant, map[string]any{"text": curriculumText}))
	path := "/api/curriculum/documents/" + out.DocumentID.String() + "/suggestions"

	w := env.do(t, http.MethodGet, path, tenant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.gen.text = "```json\n" + `{"grados":[{"grado":"Tercer grado","materias":[{"materia":"Matemática","objetivos":[{"tema":"Fracciones","detalle":"Comparar"}]}]}]}` + "\n```"
	w = env.do(t, http.MethodGet, path+"?grade=3", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Areas []curriculum.AreaSuggestions `json:"areas"`
	}](t, w)
	require.Len(t, res.Areas, 1)
	assert.Equal(t, "Matemática", res.Areas[0].Area)
	require.Len(t, res.Areas[0].Suggestions, 1)
	assert.Equal(t, "Fracciones", res.Areas[0].Suggestions[0].Title)
}

func TestDocuments_Enrichment(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()
	decode[ingest.Outcome](t, env.do(t, http.MethodPost, "/api/curriculum/documents", tenant, map[string]any{"text": curriculumText}))

	env.gen.text = "Resumen del grado."
	w := env.do(t, http.MethodPost, "/api/curriculum/enrichment", tenant, map[string]any{
		"plan_name":          "Plan anual",
		"grade":              "3",
		"include_objectives": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Enrichment   *curriculum.Enrichment `json:"enrichment"`
		SegmentsUsed int                    `json:"segments_used"`
	}](t, w)
	assert.Equal(t, 2, res.SegmentsUsed)
	require.NotNil(t, res.Enrichment)
	assert.Len(t, res.Enrichment.Objectives, 2)

	w = env.do(t, http.MethodPost, "/api/curriculum/enrichment", tenant, map[string]any{"grade": "3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlans_CreateParseItemsExport(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	w := env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{
		"name":     "Plan 2025",
		"raw_text": "Tercer grado: Matemática, fracciones.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	plan := decode[map[string]any](t, w)
	planID := plan["id"].(string)
	assert.Equal(t, "Plan 2025", plan["name"])

	w = env.do(t, http.MethodPost, "/api/plans/"+planID+"/parse", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["items_created"])

	w = env.do(t, http.MethodPost, "/api/plans/"+planID+"/parse", tenant, map[string]any{"reset_previous": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/plans/"+planID+"/items", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, w)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "3", items.Items[0]["grado_normalizado"])

	w = env.do(t, http.MethodGet, "/api/plans/"+planID+"/export.xlsx", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodGet, "/api/plans/"+planID+"/items", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/plans", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["plans"], 1)
}

func TestPlans_CreateReusesStudyPlan(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()
	study := uuid.NewString()

	w := env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{"name": "A", "study_plan_id": study})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[map[string]any](t, w)

	w = env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{"name": "B", "study_plan_id": study})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], decode[map[string]any](t, w)["id"])

	w = env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{"study_plan_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlans_UploadAndReprocessDocument(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()
	plan := decode[map[string]any](t, env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{"name": "Plan"}))
	planID := plan["id"].(string)

	w := env.upload(t, "/api/plans/"+planID+"/documents", tenant, "plan.txt", []byte(curriculumText), map[string]string{"subject_hint": "Matemática"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[processor.PlanUploadResult](t, w)
	assert.Equal(t, 1, res.ItemsCreated)
	require.NotNil(t, res.PlanDocument)
	assert.Equal(t, "Plan", res.Plan.Name)

	w = env.do(t, http.MethodGet, "/api/plans/"+planID+"/documents", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["plan_documents"], 1)

	process := "/api/plans/" + planID + "/documents/" + res.PlanDocument.ID.String() + "/process"
	w = env.do(t, http.MethodPost, process, tenant, map[string]any{"name": "Plan revisado", "raw_text": "Cuarto grado"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, body["items_created"])
	assert.Equal(t, "Plan revisado", body["plan"].(map[string]any)["name"])

	other := decode[map[string]any](t, env.do(t, http.MethodPost, "/api/plans", tenant, map[string]any{"name": "Otro"}))
	w = env.do(t, http.MethodPost, "/api/plans/"+other["id"].(string)+"/documents/"+res.PlanDocument.ID.String()+"/process", tenant, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.upload(t, "/api/plans/"+planID+"/documents", tenant, "scan.png", []byte("png"), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "TEXT_EXTRACTION_FAILED", decode[UploadFailure](t, w).Error.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	w := env.do(t, http.MethodPut, "/api/catalog/grade-aliases", tenant, map[string]any{"alias": "Sala verde", "normalized_value": "K5"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/catalog/area-keywords", tenant, map[string]any{"label": "Robótica", "pattern": "rob("})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/catalog/area-keywords", tenant, map[string]any{"label": "Robótica", "pattern": "rob[oó]tica"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPut, "/api/catalog/prompts", tenant, map[string]any{"context": constants.PromptContextCurriculumParser, "text": "Analiza."})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodPut, "/api/catalog/prompts", tenant, map[string]any{"context": "", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	tenant := uuid.New()

	w := env.do(t, http.MethodPut, "/api/settings/ai", uuid.Nil, map[string]any{"ai_provider": "heuristic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TENANT_REQUIRED", decode[ErrorEnvelope](t, w).Error.Code)

	w = env.do(t, http.MethodPut, "/api/settings/ai", tenant, map[string]any{"ai_provider": "gemini"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/settings/ai", tenant, map[string]any{"ai_provider": "OpenAI", "ai_model": "gpt-4o"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/settings/ai", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "openai", got["ai_provider"])
	assert.Equal(t, "gpt-4o", got["ai_model"])
}
