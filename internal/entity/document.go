package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

// Document is an ingested curriculum source. TenantID uuid.Nil marks a global document.
type Document struct {
	ID             uuid.UUID                `json:"id"`
	TenantID       uuid.UUID                `json:"tenant_id"`
	Title          string                   `json:"title"`
	Jurisdiction   *string                  `json:"jurisdiction,omitempty"`
	Year           *int                     `json:"year,omitempty"`
	SourceFilename *string                  `json:"source_filename,omitempty"`
	MimeType       string                   `json:"mime_type,omitempty"`
	RawText        string                   `json:"-"`
	Status         constants.DocumentStatus `json:"status"`
	ErrorMessage   *string                  `json:"error_message,omitempty"`
	GradeMin       *string                  `json:"grade_min,omitempty"`
	GradeMax       *string                  `json:"grade_max,omitempty"`
	SegmentCount   int                      `json:"segment_count"`
	CreatedAt      time.Time                `json:"created_at"`
}

// IsGlobal reports whether the document is shared across tenants.
func (d *Document) IsGlobal() bool { return d.TenantID == uuid.Nil }

// Ready reports whether segments can be queried.
func (d *Document) Ready() bool { return d.Status == constants.DocumentStatusReady }
