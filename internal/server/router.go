package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Logger *slog.Logger

	DocumentHandler *DocumentHandler
	PlanHandler     *PlanHandler
	CatalogHandler  *CatalogHandler
	SettingsHandler *SettingsHandler
	HealthHandler   *HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestContext())
	r.Use(RequestLogger(cfg.Logger))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Curriculum documents
	if h := cfg.DocumentHandler; h != nil {
		cur := api.Group("/curriculum")
		cur.POST("/documents", h.Upload)
		cur.GET("/documents", h.List)
		cur.GET("/documents/:id", h.Get)
		cur.DELETE("/documents/:id", h.Delete)
		cur.GET("/documents/:id/segments.xlsx", h.ExportSegments)
		cur.GET("/documents/:id/suggestions", h.Suggestions)
		cur.GET("/segments", h.Segments)
		cur.POST("/enrichment", h.Enrichment)
	}

	// Plans
	if h := cfg.PlanHandler; h != nil {
		plans := api.Group("/plans")
		plans.POST("", h.Create)
		plans.GET("", h.List)
		plans.POST("/:id/parse", h.Parse)
		plans.GET("/:id/documents", h.Documents)
		plans.POST("/:id/documents", h.UploadDocument)
		plans.POST("/:id/documents/:pdid/process", h.ProcessDocument)
		plans.GET("/:id/items", h.Items)
		plans.GET("/:id/export.xlsx", h.Export)
	}

	// Catalog
	if h := cfg.CatalogHandler; h != nil {
		cat := api.Group("/catalog")
		cat.PUT("/grade-aliases", h.PutGradeAlias)
		cat.POST("/area-keywords", h.PostAreaKeyword)
		cat.PUT("/prompts", h.PutPrompt)
	}

	// Settings
	if h := cfg.SettingsHandler; h != nil {
		api.GET("/settings/ai", h.GetAI)
		api.PUT("/settings/ai", h.PutAI)
	}

	return r
}
