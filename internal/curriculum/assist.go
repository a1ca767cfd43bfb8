package curriculum

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

const (
	maxStructureExcerptRunes = 60000
	maxEnrichmentSegments    = 8
	maxSegmentExcerptRunes   = 1200
	maxObjectiveSnippetRunes = 800
	defaultObjectiveArea     = "Contenidos"
)

type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ClassIdeas  []string `json:"class_ideas"`
}

type AreaSuggestions struct {
	Area        string       `json:"area"`
	Suggestions []Suggestion `json:"suggestions"`
}

// GradeSuggestions asks the tenant's model for the document's grade → subject →
// objective structure and returns the objectives of the requested grade, grouped
// by area. Unusable model output yields no suggestions.
func (s *Service) GradeSuggestions(ctx context.Context, doc *entity.Document, gradeName string) []AreaSuggestions {
	structure := s.Structure(ctx, doc)
	if len(structure) == 0 {
		return nil
	}
	normalized, _ := s.normalize(ctx, doc)(gradeName)
	subjects := matchGrade(structure, normalized, gradeName)

	var areas []AreaSuggestions
	for _, subj := range subjects {
		var suggestions []Suggestion
		for _, obj := range subj.Objectives {
			title := obj.Title
			if title == "" {
				title = subj.Name + " · objetivo"
			}
			description := obj.Description
			if obj.Pages != "" {
				description = strings.TrimSpace(fmt.Sprintf("[Pág. %s] %s", obj.Pages, description))
			}
			if obj.Notes != "" {
				description = strings.TrimSpace(description + "\nNotas: " + obj.Notes)
			}
			ideas := obj.ClassIdeas
			if ideas == nil {
				ideas = []string{}
			}
			suggestions = append(suggestions, Suggestion{
				Title:       strings.TrimSpace(title),
				Description: strings.TrimSpace(description),
				ClassIdeas:  ideas,
			})
		}
		if len(suggestions) > 0 {
			areas = append(areas, AreaSuggestions{Area: subj.Name, Suggestions: suggestions})
		}
	}
	return areas
}

// Structure runs the curriculum parser prompt over the start of the document.
func (s *Service) Structure(ctx context.Context, doc *entity.Document) []GradeStructure {
	text := strings.TrimSpace(doc.RawText)
	if text == "" {
		return nil
	}
	prompt := s.Catalog.ActivePrompt(ctx, constants.PromptContextCurriculumParser, doc.TenantID)
	input := map[string]any{
		"document_excerpt": truncateRunes(text, maxStructureExcerptRunes),
		"language_hint":    "es",
		"document_title":   doc.Title,
	}

	start := time.Now()
	res := s.Generators.ForTenant(ctx, doc.TenantID).Generate(ctx, prompt, input)
	structure := ParseStructure(res.Text, s.normalize(ctx, doc))
	s.Logger.Info("curriculum.structure.done",
		"document_id", doc.ID,
		"provider", res.Provider,
		"grades", len(structure),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return structure
}

func (s *Service) normalize(ctx context.Context, doc *entity.Document) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		if s.Catalog == nil {
			return "", false
		}
		return s.Catalog.ResolveGradeAlias(ctx, raw, doc.TenantID)
	}
}

// EnrichmentRequest describes the plan/grade pair to summarize.
type EnrichmentRequest struct {
	TenantID          uuid.UUID
	PlanName          string
	GradeName         string
	Segments          []entity.Segment
	IncludeObjectives bool
}

type EnrichmentObjective struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Enrichment struct {
	Description string                `json:"description"`
	Objectives  []EnrichmentObjective `json:"objectives"`
}

// PlanEnrichment summarizes the segments for a plan and grade through the
// tenant's model. With IncludeObjectives it also returns one objective per area
// built from the segment text. No segments yields nil.
func (s *Service) PlanEnrichment(ctx context.Context, req EnrichmentRequest) *Enrichment {
	if len(req.Segments) == 0 {
		return nil
	}

	summarized := make([]map[string]any, 0, maxEnrichmentSegments)
	for _, seg := range req.Segments[:min(len(req.Segments), maxEnrichmentSegments)] {
		summarized = append(summarized, map[string]any{
			"area":    seg.AreaOr(constants.GeneralArea),
			"excerpt": truncateRunes(strings.TrimSpace(seg.ContentText), maxSegmentExcerptRunes),
		})
	}
	prompt := "Eres un asesor curricular. Redacta un resumen del plan de estudios para el grado indicado, " +
		"usando exclusivamente la información provista en los segmentos.\n" +
		"Grado: " + req.GradeName + "\n" +
		"Plan: " + req.PlanName + "\n" +
		"Incluye un párrafo que describa los ejes prioritarios y otra nota con sugerencias."
	res := s.Generators.ForTenant(ctx, req.TenantID).Generate(ctx, prompt, map[string]any{"segments": summarized})

	out := &Enrichment{Description: res.Text, Objectives: []EnrichmentObjective{}}
	if req.IncludeObjectives {
		var order []string
		grouped := map[string][]string{}
		for _, seg := range req.Segments {
			area := seg.AreaOr(defaultObjectiveArea)
			if _, seen := grouped[area]; !seen {
				order = append(order, area)
			}
			grouped[area] = append(grouped[area], strings.TrimSpace(seg.ContentText))
		}
		for _, area := range order {
			out.Objectives = append(out.Objectives, EnrichmentObjective{
				Title:       area + " · " + req.GradeName,
				Description: truncateRunes(strings.Join(grouped[area], " "), maxObjectiveSnippetRunes),
			})
		}
	}
	s.Logger.Info("curriculum.enrichment.done", "tenant_id", req.TenantID, "segments", len(req.Segments), "provider", res.Provider)
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
