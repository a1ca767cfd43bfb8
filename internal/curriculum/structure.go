package curriculum

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
)

// Objective is one learning objective as reported by the model.
type Objective struct {
	Title       string
	Description string
	Pages       string
	Notes       string
	ClassIdeas  []string
}

type Subject struct {
	Name       string
	Objectives []Objective
}

// GradeStructure is one grade of the grade → subject → objective hierarchy.
// Normalized is empty when the grade name does not resolve.
type GradeStructure struct {
	Name       string
	Normalized string
	Subjects   []Subject
}

// ParseStructure decodes the model's hierarchy tolerantly: the grade list may be
// top-level or wrapped under grades/grados/courses/cursos, and subjects and
// objectives accept Spanish and English key spellings. normalize may be nil.
func ParseStructure(raw string, normalize func(string) (string, bool)) []GradeStructure {
	candidate := llm.ExtractJSON(raw)
	if candidate == "" {
		return nil
	}
	var data any
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return nil
	}

	var entries []any
	switch v := data.(type) {
	case []any:
		entries = v
	case map[string]any:
		entries = firstList(v, "grades", "grados", "courses", "cursos")
	}

	var out []GradeStructure
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name := firstText(entry, "name", "grado", "grade")
		if name == "" {
			continue
		}
		g := GradeStructure{Name: name, Subjects: parseSubjects(firstValue(entry, "subjects", "materias", "areas", "subjectsAreas"))}
		if normalize != nil {
			if n, ok := normalize(name); ok {
				g.Normalized = n
			}
		}
		out = append(out, g)
	}
	return out
}

func parseSubjects(raw any) []Subject {
	list, _ := raw.([]any)
	var out []Subject
	for _, it := range list {
		var (
			name       string
			objectives any
		)
		switch s := it.(type) {
		case string:
			name = strings.TrimSpace(s)
		case map[string]any:
			name = firstText(s, "name", "materia", "area", "subject")
			objectives = firstValue(s, "objectives", "objetivos", "competencias", "temas")
		default:
			continue
		}
		if name == "" {
			continue
		}
		out = append(out, Subject{Name: name, Objectives: parseObjectives(objectives)})
	}
	return out
}

func parseObjectives(raw any) []Objective {
	var out []Objective
	switch v := raw.(type) {
	case []any:
		for _, it := range v {
			switch o := it.(type) {
			case string:
				out = append(out, Objective{Title: strings.TrimSpace(o)})
			case map[string]any:
				out = append(out, Objective{
					Title:       firstText(o, "title", "nombre", "tema"),
					Description: firstText(o, "description", "detalle", "explicacion"),
					Pages:       firstText(o, "pages", "page", "pagina", "paginas", "referencia"),
					Notes:       firstText(o, "notes", "notas"),
					ClassIdeas:  splitIdeas(firstValue(o, "class_ideas", "actividades", "ideas")),
				})
			}
		}
	case map[string]any:
		// headings mapped to descriptions
		for _, key := range slices.Sorted(maps.Keys(v)) {
			out = append(out, Objective{Title: strings.TrimSpace(key), Description: strings.TrimSpace(fmt.Sprint(v[key]))})
		}
	}
	return out
}

// splitIdeas accepts a bullet list in one string or a JSON list.
func splitIdeas(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := strings.TrimSpace(strings.Trim(line, "•- ")); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range t {
			if it == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(it)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// firstValue returns the first present, non-empty value among keys.
func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
		case []any:
			if len(t) == 0 {
				continue
			}
		case map[string]any:
			if len(t) == 0 {
				continue
			}
		case bool:
			if !t {
				continue
			}
		case float64:
			if t == 0 {
				continue
			}
		}
		return v
	}
	return nil
}

func firstList(m map[string]any, keys ...string) []any {
	list, _ := firstValue(m, keys...).([]any)
	return list
}

func firstText(m map[string]any, keys ...string) string {
	switch v := firstValue(m, keys...).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprint(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// matchGrade picks the subjects of the grade whose normalized label matches,
// else of the last grade whose name matches case-insensitively.
func matchGrade(structure []GradeStructure, normalized, name string) []Subject {
	var fallback []Subject
	wanted := strings.ToLower(strings.TrimSpace(name))
	for _, g := range structure {
		if normalized != "" && g.Normalized == normalized {
			return g.Subjects
		}
		if strings.ToLower(strings.TrimSpace(g.Name)) == wanted {
			fallback = g.Subjects
		}
	}
	return fallback
}
