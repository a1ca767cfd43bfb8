package entity

import (
	"time"

	"github.com/google/uuid"
)

// GradeAlias maps a free-text alias ("tercero") to a normalized grade code ("3").
type GradeAlias struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	Alias           string    `json:"alias"`
	NormalizedValue string    `json:"normalized_value"`
}

// AreaKeyword pairs a canonical area label with a case-insensitive regex.
type AreaKeyword struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Label    string    `json:"label"`
	Pattern  string    `json:"pattern"`
}

// Prompt is a named extraction prompt. Only active rows are served.
type Prompt struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Context   string    `json:"context"`
	Text      string    `json:"text"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantSettings holds per-tenant generative backend preferences.
type TenantSettings struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	AIProvider string    `json:"ai_provider,omitempty"`
	AIModel    string    `json:"ai_model,omitempty"`
}
