package catalog

import (
	"log/slog"
	"regexp"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

// AreaPattern is a compiled area keyword.
type AreaPattern struct {
	Label   string
	Pattern string
	re      *regexp.Regexp
}

// Match reports whether the case-insensitive pattern occurs anywhere in text.
func (p AreaPattern) Match(text string) bool {
	return p.re != nil && p.re.MatchString(text)
}

// MatchArea returns the label of the first pattern in order that matches text.
func MatchArea(patterns []AreaPattern, text string) (string, bool) {
	for _, p := range patterns {
		if p.Match(text) {
			return p.Label, true
		}
	}
	return "", false
}

// MergeAreaKeywords layers rows over base. A row whose label already exists replaces
// that entry in place; new labels are appended, preserving catalog order.
func MergeAreaKeywords(base, rows []entity.AreaKeyword) []entity.AreaKeyword {
	out := make([]entity.AreaKeyword, 0, len(base)+len(rows))
	index := make(map[string]int, len(base)+len(rows))
	for _, kw := range append(append([]entity.AreaKeyword{}, base...), rows...) {
		if i, ok := index[kw.Label]; ok {
			out[i] = kw
			continue
		}
		index[kw.Label] = len(out)
		out = append(out, kw)
	}
	return out
}

func compilePatterns(rows []entity.AreaKeyword, logger *slog.Logger) []AreaPattern {
	out := make([]AreaPattern, 0, len(rows))
	for _, row := range rows {
		re, err := regexp.Compile("(?i)" + row.Pattern)
		if err != nil {
			logger.Warn("catalog.area_keyword.invalid_pattern", "label", row.Label, "pattern", row.Pattern, "error", err)
			continue
		}
		out = append(out, AreaPattern{Label: row.Label, Pattern: row.Pattern, re: re})
	}
	return out
}

// CompileAreaPatterns compiles rows without a catalog, skipping invalid patterns.
func CompileAreaPatterns(rows []entity.AreaKeyword) []AreaPattern {
	return compilePatterns(rows, slog.Default())
}
