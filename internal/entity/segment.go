package entity

import "github.com/google/uuid"

// Segment is a contiguous slice of a document's lines, [StartLine, EndLine).
// A nil GradeLabel marks general content.
type Segment struct {
	ID           uuid.UUID `json:"id"`
	DocumentID   uuid.UUID `json:"document_id"`
	GradeLabel   *string   `json:"grade_label,omitempty"`
	Area         *string   `json:"area,omitempty"`
	SectionTitle string    `json:"section_title"`
	ContentText  string    `json:"content_text"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
}

// AreaOr returns the area label or def when unset.
func (s *Segment) AreaOr(def string) string {
	if s.Area == nil || *s.Area == "" {
		return def
	}
	return *s.Area
}
