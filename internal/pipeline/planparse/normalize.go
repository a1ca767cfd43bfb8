package planparse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

const maxAreaRunes = 255

// gradeNormalizer resolves a raw grade to its normalized label.
type gradeNormalizer func(raw string) (string, bool)

// normalizeItem turns one decoded object into a plan item. Objects without a
// description are rejected.
func normalizeItem(payload map[string]any, fragmentIndex int, normalize gradeNormalizer) (entity.PlanItem, bool) {
	description := firstString(payload, "descripcion", "description")
	if description == "" {
		return entity.PlanItem{}, false
	}
	area := firstString(payload, "area")
	if area == "" {
		area = constants.GeneralArea
	}
	if utf8.RuneCountInString(area) > maxAreaRunes {
		area = string([]rune(area)[:maxAreaRunes])
	}

	item := entity.PlanItem{
		Area:        area,
		Description: description,
		Grade:       coerceGrade(payload["grado"]),
		Metadata:    mergeMetadata(payload, fragmentIndex),
	}
	if item.Grade != nil && normalize != nil {
		if n, ok := normalize(*item.Grade); ok {
			item.NormalizedGrade = &n
		}
	}
	return item, true
}

// coerceGrade keeps grades as text: numbers become integer strings, blanks become nil.
func coerceGrade(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		s = strconv.FormatInt(int64(t), 10)
	case string:
		s = strings.TrimSpace(t)
	default:
		s = strings.TrimSpace(fmt.Sprint(t))
	}
	if s == "" {
		return nil
	}
	return &s
}

// mergeMetadata reconciles alternative key spellings into the canonical record.
func mergeMetadata(payload map[string]any, fragmentIndex int) entity.ItemMetadata {
	meta := entity.ItemMetadata{
		Title:         firstString(payload, "title", "titulo", "nombre"),
		Period:        firstString(payload, "period", "periodo"),
		ClassIdeas:    classIdeas(payload),
		FragmentIndex: fragmentIndex,
		Source:        constants.ItemSourcePlanParser,
	}
	if user, ok := payload["metadata"].(map[string]any); ok && len(user) > 0 {
		meta.Extra = make(map[string]any, len(user))
		for k, v := range user {
			meta.Extra[k] = v
		}
		if meta.Title == "" {
			meta.Title = firstString(user, "title")
		}
		if meta.Period == "" {
			meta.Period = firstString(user, "period")
		}
		if len(meta.ClassIdeas) == 0 {
			meta.ClassIdeas = classIdeas(user)
		}
	}
	return meta
}

func classIdeas(payload map[string]any) []string {
	for _, key := range []string{"class_ideas", "ideas", "actividades"} {
		switch v := payload[key].(type) {
		case string:
			var out []string
			for _, line := range strings.Split(v, "\n") {
				if s := strings.TrimSpace(strings.Trim(line, "•- ")); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case []any:
			var out []string
			for _, it := range v {
				if s := strings.TrimSpace(fmt.Sprint(it)); s != "" && it != nil {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
