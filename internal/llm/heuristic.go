package llm

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const segmentExcerptRunes = 160

// heuristicReport writes a deterministic narrative from well-known context keys.
func heuristicReport(input map[string]any, now time.Time) string {
	scope := "global"
	if s, ok := input["scope"]; ok && s != nil {
		scope = fmt.Sprint(s)
	}
	metrics, _ := input["metrics"].(map[string]any)
	learning, _ := input["learning"].(map[string]any)
	highlights := toStrings(input["highlights"])
	followups := toStrings(input["followups"])

	lines := []string{
		fmt.Sprintf("Reporte %s · generado automáticamente (%s UTC).", strings.ToUpper(scope), now.Format("02/01 15:04")),
		"",
	}

	if len(metrics) > 0 {
		lines = append(lines, "Resumen de métricas:")
		if v, ok := metrics["tasks_total"]; ok {
			lines = append(lines, fmt.Sprintf("- Tareas evaluadas: %v", v))
		}
		if v, ok := metrics["approvals"]; ok {
			rate, ok := metrics["approval_rate"]
			if !ok {
				rate = 0
			}
			lines = append(lines, fmt.Sprintf("- Aprobaciones: %v · %v%%", v, rate))
		}
		if v, ok := learning["no_help_rate"]; ok {
			lines = append(lines, fmt.Sprintf("- %% de entregas sin ayudas: %v%%", v))
		}
		if v, ok := metrics["late_submissions"]; ok {
			lines = append(lines, fmt.Sprintf("- Entregas tardías: %v", v))
		}
		lines = append(lines, "")
	}

	lines = appendSection(lines, "Hallazgos relevantes:", highlights)
	lines = appendSection(lines, "Seguimientos psicopedagógicos:", followups)

	if segs, ok := input["segments"].([]map[string]any); ok {
		var refs []string
		for _, s := range segs {
			area := fmt.Sprint(s["area"])
			excerpt := strings.Join(strings.Fields(fmt.Sprint(s["excerpt"])), " ")
			if utf8.RuneCountInString(excerpt) > segmentExcerptRunes {
				excerpt = string([]rune(excerpt)[:segmentExcerptRunes]) + "…"
			}
			refs = append(refs, area+": "+excerpt)
		}
		lines = appendSection(lines, "Contenidos de referencia:", refs)
	}

	lines = append(lines, "Recomendaciones sugeridas:")
	if actions := toStrings(learning["actions"]); len(actions) > 0 {
		for _, a := range actions {
			lines = append(lines, "- "+a)
		}
	} else {
		lines = append(lines, "- Mantener el monitoreo semanal y reforzar en grupos reducidos.")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func appendSection(lines []string, title string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, title)
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return append(lines, "")
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			out = append(out, fmt.Sprint(it))
		}
		return out
	}
	return nil
}
