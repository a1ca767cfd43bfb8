package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Plan aggregates the items extracted from one curriculum plan.
type Plan struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	StudyPlanID  *uuid.UUID `json:"study_plan_id,omitempty"`
	Name         string     `json:"name"`
	AcademicYear *string    `json:"academic_year,omitempty"`
	Jurisdiction *string    `json:"jurisdiction,omitempty"`
	Description  *string    `json:"description,omitempty"`
	RawText      string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PlanDocument links a plan to an attached curriculum document.
type PlanDocument struct {
	ID               uuid.UUID `json:"id"`
	PlanID           uuid.UUID `json:"plan_id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	DocumentID       uuid.UUID `json:"document_id"`
	Title            string    `json:"title"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
	SubjectHint      *string   `json:"subject_hint,omitempty"`
}

// Label is the display name, with the subject hint when one exists.
func (d *PlanDocument) Label() string {
	if d.SubjectHint != nil && *d.SubjectHint != "" {
		return d.Title + " · " + *d.SubjectHint
	}
	return d.Title
}

// PlanItem is one extracted (grade, area, description) triple.
type PlanItem struct {
	ID              uuid.UUID    `json:"id"`
	PlanID          uuid.UUID    `json:"plan_id"`
	PlanDocumentID  *uuid.UUID   `json:"plan_document_id,omitempty"`
	Grade           *string      `json:"grado"`
	NormalizedGrade *string      `json:"grado_normalizado"`
	Area            string       `json:"area"`
	Description     string       `json:"descripcion"`
	Metadata        ItemMetadata `json:"metadata"`
}

// ItemMetadata is the canonical metadata record of a plan item. Alternative key
// spellings are reconciled before an ItemMetadata is built; Extra carries
// caller-supplied keys that have no dedicated field.
type ItemMetadata struct {
	Title         string
	Period        string
	ClassIdeas    []string
	FragmentIndex int
	Source        string
	Extra         map[string]any
}

var reservedMetadataKeys = map[string]struct{}{
	"title": {}, "period": {}, "class_ideas": {}, "fragment_index": {}, "source": {},
}

func (m ItemMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		if _, reserved := reservedMetadataKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.Period != "" {
		out["period"] = m.Period
	}
	if len(m.ClassIdeas) > 0 {
		out["class_ideas"] = m.ClassIdeas
	}
	out["fragment_index"] = m.FragmentIndex
	if m.Source != "" {
		out["source"] = m.Source
	}
	return json.Marshal(out)
}

func (m *ItemMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ItemMetadata{}
	for k, v := range raw {
		var err error
		switch k {
		case "title":
			err = json.Unmarshal(v, &m.Title)
		case "period":
			err = json.Unmarshal(v, &m.Period)
		case "class_ideas":
			err = json.Unmarshal(v, &m.ClassIdeas)
		case "fragment_index":
			err = json.Unmarshal(v, &m.FragmentIndex)
		case "source":
			err = json.Unmarshal(v, &m.Source)
		default:
			var anyVal any
			if err = json.Unmarshal(v, &anyVal); err == nil {
				if m.Extra == nil {
					m.Extra = map[string]any{}
				}
				m.Extra[k] = anyVal
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
