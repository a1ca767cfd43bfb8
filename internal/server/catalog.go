package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
)

type CatalogHandler struct {
	log *slog.Logger
	svc *catalog.Service
}

func NewCatalogHandler(log *slog.Logger, svc *catalog.Service) *CatalogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogHandler{log: log.With("handler", "CatalogHandler"), svc: svc}
}

type gradeAliasRequest struct {
	Alias           string `json:"alias"`
	NormalizedValue string `json:"normalized_value"`
}

func (h *CatalogHandler) PutGradeAlias(c *gin.Context) {
	var req gradeAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	if err := h.svc.PutGradeAlias(c.Request.Context(), tenantOf(c), req.Alias, req.NormalizedValue); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type areaKeywordRequest struct {
	Label   string `json:"label"`
	Pattern string `json:"pattern"`
}

func (h *CatalogHandler) PostAreaKeyword(c *gin.Context) {
	var req areaKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	if err := h.svc.PutAreaKeyword(c.Request.Context(), tenantOf(c), req.Label, req.Pattern); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type promptRequest struct {
	Context string `json:"context"`
	Text    string `json:"text"`
	Active  *bool  `json:"active"`
}

// PutPrompt stores a prompt version. Prompts are active unless stated otherwise.
func (h *CatalogHandler) PutPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	active := req.Active == nil || *req.Active
	if err := h.svc.PutPrompt(c.Request.Context(), tenantOf(c), req.Context, req.Text, active); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
