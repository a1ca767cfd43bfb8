package segment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
)

// Catalog is the subset of the configuration catalog used for segmentation.
type Catalog interface {
	ResolveGradeAlias(ctx context.Context, raw string, tenantID uuid.UUID) (string, bool)
	AreaKeywordPatterns(ctx context.Context, tenantID uuid.UUID) []catalog.AreaPattern
}

// Record is one detected segment. Line offsets are absolute and half-open.
type Record struct {
	GradeLabel   *string
	Area         *string
	SectionTitle string
	ContentText  string
	StartLine    int
	EndLine      int
}

const (
	minHeadingRunes = 3
	maxHeadingRunes = 80
)

var (
	headingNoise = regexp.MustCompile(`^[\s\d.\-–—•·]+`)
	wordGrade    = regexp.MustCompile(`(?i)^((?:primer|primero|segundo|tercer|tercero|cuarto|quinto|sexto|s[eé]ptimo)\s+(?:grado|año))`)
	numericGrade = regexp.MustCompile(`(?i)^(\d{1,2}\s*(?:°|º|er|ro|do|to|vo|mo)\s*(?:grado|año)|\d{1,2}\s*(?:grado|año))`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Engine splits curriculum text into grade and area segments.
type Engine struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewEngine(cat Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: cat, logger: logger}
}

type gradeBreak struct {
	line    int
	label   *string
	heading string
	graded  bool // the slice starts with a grade heading line
}

type areaHeading struct {
	line  int // relative to the grade slice
	label string
	title string // the catalog label for keyword matches, the heading text otherwise
}

// Segment detects grade boundaries, then area headings inside each grade slice.
// Empty input yields no segments. A panic while scanning is returned as an error.
func (e *Engine) Segment(ctx context.Context, text string, tenantID uuid.UUID) (records []Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("segmentation failed: %v", r)
		}
	}()
	start := time.Now()

	lines := SplitLines(text)
	patterns := e.catalog.AreaKeywordPatterns(ctx, tenantID)

	var breaks []gradeBreak
	for i, line := range lines {
		match, ok := matchGradeHeading(line)
		if !ok {
			continue
		}
		var label *string
		if normalized, found := e.catalog.ResolveGradeAlias(ctx, match, tenantID); found {
			label = &normalized
		}
		breaks = append(breaks, gradeBreak{line: i, label: label, heading: strings.TrimSpace(line), graded: true})
	}
	// Text before the first grade heading (or the whole text) is general content.
	if len(breaks) == 0 || breaks[0].line > 0 {
		breaks = append([]gradeBreak{{line: 0, heading: constants.GeneralArea}}, breaks...)
	}

	for i, b := range breaks {
		end := len(lines)
		if i+1 < len(breaks) {
			end = breaks[i+1].line
		}
		slice := lines[b.line:end]
		chunk := strings.TrimSpace(strings.Join(slice, "\n"))
		if chunk == "" {
			continue
		}

		headings := findAreaHeadings(slice, b.graded, patterns)
		// Lines between a grade heading and its first area heading stay with the grade.
		if len(headings) > 0 && headings[0].line > 0 {
			introFrom := 0
			if b.graded {
				introFrom = 1
			}
			if strings.TrimSpace(strings.Join(slice[introFrom:headings[0].line], "\n")) != "" {
				area := constants.GeneralArea
				records = append(records, Record{
					GradeLabel:   b.label,
					Area:         &area,
					SectionTitle: b.heading,
					ContentText:  strings.TrimSpace(strings.Join(slice[:headings[0].line], "\n")),
					StartLine:    b.line,
					EndLine:      b.line + headings[0].line,
				})
			}
		}
		if len(headings) == 0 {
			area := constants.GeneralArea
			records = append(records, Record{
				GradeLabel:   b.label,
				Area:         &area,
				SectionTitle: b.heading,
				ContentText:  chunk,
				StartLine:    b.line,
				EndLine:      end,
			})
			continue
		}
		for j, h := range headings {
			segEnd := len(slice)
			if j+1 < len(headings) {
				segEnd = headings[j+1].line
			}
			content := strings.TrimSpace(strings.Join(slice[h.line:segEnd], "\n"))
			if content == "" {
				continue
			}
			area := h.label
			records = append(records, Record{
				GradeLabel:   b.label,
				Area:         &area,
				SectionTitle: h.title,
				ContentText:  content,
				StartLine:    b.line + h.line,
				EndLine:      b.line + segEnd,
			})
		}
	}

	e.logger.Debug("segment.done",
		"tenant_id", tenantID,
		"lines", len(lines),
		"grade_breaks", len(breaks),
		"segments", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

// findAreaHeadings scans one grade slice. When the slice starts with a grade
// heading, that line is not considered as an area heading.
func findAreaHeadings(slice []string, skipFirst bool, patterns []catalog.AreaPattern) []areaHeading {
	var out []areaHeading
	for idx, line := range slice {
		if idx == 0 && skipFirst {
			continue
		}
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}
		normalized := cleanHeadingPrefix(clean)
		n := utf8.RuneCountInString(normalized)
		if n < minHeadingRunes || n > maxHeadingRunes {
			continue
		}
		label, matched := catalog.MatchArea(patterns, normalized)
		title := label
		if !matched {
			if !isUpper(normalized) {
				continue
			}
			label = fallbackAreaLabel(normalized)
			if label == "" {
				continue
			}
			title = normalized
		}
		out = append(out, areaHeading{line: idx, label: label, title: title})
	}
	return out
}

func matchGradeHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if m := numericGrade.FindStringSubmatch(trimmed); m != nil && utf8.RuneCountInString(trimmed) <= maxHeadingRunes {
		return m[1], true
	}
	if m := wordGrade.FindStringSubmatch(cleanHeadingPrefix(trimmed)); m != nil {
		return m[1], true
	}
	return "", false
}

// cleanHeadingPrefix drops page numbers, bullets and dashes before a heading.
func cleanHeadingPrefix(text string) string {
	return strings.TrimSpace(headingNoise.ReplaceAllString(text, ""))
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func fallbackAreaLabel(text string) string {
	stripped := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ":.-"))
	stripped = spaces.ReplaceAllString(stripped, " ")
	if utf8.RuneCountInString(stripped) < minHeadingRunes {
		return ""
	}
	return truncateRunes(stripped, maxHeadingRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// SplitLines splits text into lines the way segment offsets count them: "\n"
// separated, a trailing "\r" removed, and no empty line after a final newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
