package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	degreeMarks  = strings.NewReplacer("°", " ", "º", " ", "ª", " ")
	digitOrdinal = regexp.MustCompile(`(\d+)\s*(?:ero|era|er|ro|ra|do|da|to|ta|vo|va|mo|ma|no|na)\b`)
	firstDigits  = regexp.MustCompile(`\d+`)
)

// NormalizeGradeLabel maps a free-text grade label to its normalized code.
// It lower-cases the label, strips degree and ordinal marks, looks for a word that
// is a known alias and otherwise returns the first run of digits.
func NormalizeGradeLabel(raw string, aliases map[string]string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return "", false
	}
	lowered = degreeMarks.Replace(lowered)
	lowered = digitOrdinal.ReplaceAllString(lowered, "$1")
	lowered = strings.Join(strings.Fields(lowered), " ")

	if v, ok := aliases[lowered]; ok {
		return v, true
	}
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if v, ok := aliases[w]; ok {
			return v, true
		}
	}
	if d := firstDigits.FindString(lowered); d != "" {
		return d, true
	}
	return "", false
}

func normalizeAliasKey(alias string) string {
	return strings.Join(strings.Fields(strings.ToLower(alias)), " ")
}
