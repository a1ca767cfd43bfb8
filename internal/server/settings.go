package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
)

// SettingsHandler exposes the per-tenant generative backend preferences.
type SettingsHandler struct {
	log  *slog.Logger
	repo repository.SettingsRepository
}

func NewSettingsHandler(log *slog.Logger, repo repository.SettingsRepository) *SettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{log: log.With("handler", "SettingsHandler"), repo: repo}
}

func (h *SettingsHandler) GetAI(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, s)
}

type aiSettingsRequest struct {
	Provider string `json:"ai_provider"`
	Model    string `json:"ai_model"`
}

func (h *SettingsHandler) PutAI(c *gin.Context) {
	tenantID := tenantOf(c)
	if tenantID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "TENANT_REQUIRED", errors.New("X-Tenant-ID is required"))
		return
	}
	var req aiSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", err)
		return
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider != "" && !constants.SupportedProvider(provider) {
		respondErr(c, common.InvalidInputf("ai_provider %q is not supported", req.Provider))
		return
	}
	v := common.NewValidator().Field("ai_model", req.Model, common.MaxLen(120))
	if err := common.ValidateAndReturnError(v); err != nil {
		respondErr(c, err)
		return
	}
	s := entity.TenantSettings{TenantID: tenantID, AIProvider: provider, AIModel: strings.TrimSpace(req.Model)}
	if err := h.repo.Put(c.Request.Context(), s); err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, s)
}
