package segment

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

func newEngine() *Engine {
	return NewEngine(catalog.New(nil, nil), nil)
}

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func assertRangesValid(t *testing.T, text string, recs []Record) {
	t.Helper()
	lineCount := len(SplitLines(text))
	prevEnd := 0
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.StartLine, 0)
		assert.Less(t, r.StartLine, r.EndLine)
		assert.LessOrEqual(t, r.EndLine, lineCount)
		assert.GreaterOrEqual(t, r.StartLine, prevEnd, "segments must not overlap")
		prevEnd = r.EndLine
	}
}

func TestSegment_GradeWithKeywordAreas(t *testing.T) {
	text := "Tercer grado\nMATEMÁTICA\nSumar y restar hasta 100.\n\nCiencias Sociales\nLas familias y sus costumbres."
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "3", deref(recs[0].GradeLabel))
	assert.Equal(t, "Matemática", deref(recs[0].Area))
	assert.Equal(t, 1, recs[0].StartLine)
	assert.Equal(t, 4, recs[0].EndLine)
	assert.Equal(t, "MATEMÁTICA\nSumar y restar hasta 100.", recs[0].ContentText)

	assert.Equal(t, "3", deref(recs[1].GradeLabel))
	assert.Equal(t, "Ciencias Sociales", deref(recs[1].Area))
	assert.Equal(t, 4, recs[1].StartLine)
	assert.Equal(t, 6, recs[1].EndLine)
	assertRangesValid(t, text, recs)
}

func TestSegment_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, recs)
	}
}

func TestSegment_NoGradesOneSegmentPerArea(t *testing.T) {
	text := strings.Join([]string{
		"Diseño curricular jurisdiccional",
		"MATEMÁTICA",
		"Números naturales.",
		"Geometría del plano.",
		"Ciencias Naturales",
		"Seres vivos y ambiente.",
		"EDUCACIÓN FÍSICA",
		"Juegos reglados.",
	}, "\n")
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Nil(t, r.GradeLabel)
	}
	assert.Equal(t, "General", deref(recs[0].Area))
	assert.Equal(t, "Diseño curricular jurisdiccional", recs[0].ContentText)
	assert.Equal(t, "Matemática", deref(recs[1].Area))
	assert.Equal(t, "Ciencias Naturales", deref(recs[2].Area))
	assert.Equal(t, "Educación Física", deref(recs[3].Area))
	assertRangesValid(t, text, recs)
}

func TestSegment_NoHeadingsAtAll(t *testing.T) {
	text := "Los estudiantes leen cuentos.\nEscriben textos breves.\n"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].GradeLabel)
	assert.Equal(t, "General", deref(recs[0].Area))
	assert.Equal(t, "General", recs[0].SectionTitle)
	assert.Equal(t, 0, recs[0].StartLine)
	assert.Equal(t, 2, recs[0].EndLine)
}

func TestSegment_GradeWithoutAreasIsGeneral(t *testing.T) {
	text := "Primer grado\nleer y escribir el nombre propio\n\nSegundo grado\nMATEMÁTICA\ncontar hasta 1000"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "1", deref(recs[0].GradeLabel))
	assert.Equal(t, "General", deref(recs[0].Area))
	assert.Equal(t, "Primer grado", recs[0].SectionTitle)
	assert.Equal(t, 0, recs[0].StartLine)
	assert.Equal(t, 3, recs[0].EndLine)

	assert.Equal(t, "2", deref(recs[1].GradeLabel))
	assert.Equal(t, "Matemática", deref(recs[1].Area))
	assert.Equal(t, 4, recs[1].StartLine)
	assertRangesValid(t, text, recs)
}

func TestSegment_UppercaseHeadingWithoutKeywordKeepsItsText(t *testing.T) {
	text := "Cuarto grado\n2. HUERTA ESCOLAR:\nsembrar y regar\nPLÁSTICA\ncollage"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "HUERTA ESCOLAR", deref(recs[0].Area))
	assert.Equal(t, "Plástica", deref(recs[1].Area))
}

func TestSegment_UppercaseGradeHeadingIsNotAnArea(t *testing.T) {
	text := "TERCER GRADO\nMATEMÁTICA\nfracciones"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "3", deref(recs[0].GradeLabel))
	assert.Equal(t, "Matemática", deref(recs[0].Area))
}

func TestSegment_NumericAndNoisyGradeHeadings(t *testing.T) {
	text := "12 · Quinto grado\nMATEMÁTICA\nproporcionalidad\n6° grado\nMATEMÁTICA\nporcentajes\n7mo año\nINGLÉS\ncolors"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "5", deref(recs[0].GradeLabel))
	assert.Equal(t, "6", deref(recs[1].GradeLabel))
	assert.Equal(t, "7", deref(recs[2].GradeLabel))
	assert.Equal(t, "Inglés", deref(recs[2].Area))
	assertRangesValid(t, text, recs)
}

func TestSegment_ShortNumericGradeHeadings(t *testing.T) {
	cases := []struct {
		heading string
		want    string
	}{
		{"3 año", "3"},
		{"3grado", "3"},
		{"4 grado", "4"},
		{"2do año", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.heading, func(t *testing.T) {
			text := tc.heading + "\nLENGUA\nleer cuentos"
			recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, tc.want, deref(recs[0].GradeLabel))
			assert.Equal(t, "Lengua", deref(recs[0].Area))
		})
	}
}

func TestSegment_KeywordHeadingUsesCatalogLabelAsTitle(t *testing.T) {
	text := "Tercer grado\n1. MATEMÁTICA:\nfracciones\nÁREA DE CIENCIAS SOCIALES\nlas familias\nHUERTA ESCOLAR\nsembrar"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Matemática", recs[0].SectionTitle)
	assert.Equal(t, "Ciencias Sociales", recs[1].SectionTitle)
	assert.Equal(t, "HUERTA ESCOLAR", recs[2].SectionTitle)
	assert.Equal(t, "1. MATEMÁTICA:\nfracciones", recs[0].ContentText)
}

func TestSegment_GradeIntroBeforeFirstAreaIsGeneral(t *testing.T) {
	text := "Segundo grado\nPropósitos del ciclo.\nSe espera que los alumnos...\nMATEMÁTICA\nsumas\nLENGUA\ncuentos"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "2", deref(recs[0].GradeLabel))
	assert.Equal(t, "General", deref(recs[0].Area))
	assert.Equal(t, "Segundo grado", recs[0].SectionTitle)
	assert.Equal(t, 0, recs[0].StartLine)
	assert.Equal(t, 3, recs[0].EndLine)
	assert.Contains(t, recs[0].ContentText, "Propósitos del ciclo.")

	assert.Equal(t, "Matemática", deref(recs[1].Area))
	assert.Equal(t, 3, recs[1].StartLine)
	assert.Equal(t, "Lengua", deref(recs[2].Area))
	assertRangesValid(t, text, recs)
}

func TestSegment_BlankGradeIntroAddsNoSegment(t *testing.T) {
	text := "Segundo grado\n\n  \nMATEMÁTICA\nsumas"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Matemática", deref(recs[0].Area))
	assert.Equal(t, 3, recs[0].StartLine)
}

type fixedCatalog struct {
	patterns []catalog.AreaPattern
}

func (f fixedCatalog) ResolveGradeAlias(context.Context, string, uuid.UUID) (string, bool) {
	return "", false
}

func (f fixedCatalog) AreaKeywordPatterns(context.Context, uuid.UUID) []catalog.AreaPattern {
	return f.patterns
}

func TestSegment_TenantKeywordsAndUnresolvedGrade(t *testing.T) {
	cat := fixedCatalog{patterns: catalog.CompileAreaPatterns([]entity.AreaKeyword{
		{Label: "Huerta", Pattern: `huerta`},
	})}
	e := NewEngine(cat, nil)
	text := "Segundo grado\nProyecto de huerta\nplantar semillas"
	recs, err := e.Segment(context.Background(), text, uuid.New())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].GradeLabel)
	assert.Equal(t, "Huerta", deref(recs[0].Area))
	assert.Equal(t, "Huerta", recs[0].SectionTitle)
}

func TestSegment_PreambleBeforeFirstGradeIsGeneral(t *testing.T) {
	text := "Diseño curricular 2024\nIntroducción al documento\nPrimer grado\nLENGUA\nlectura"
	recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Nil(t, recs[0].GradeLabel)
	assert.Equal(t, "General", deref(recs[0].Area))
	assert.Equal(t, 0, recs[0].StartLine)
	assert.Equal(t, 2, recs[0].EndLine)
	assert.Equal(t, "1", deref(recs[1].GradeLabel))
	assert.Equal(t, "Lengua", deref(recs[1].Area))
}

func TestSegment_RangesNeverOverlap(t *testing.T) {
	texts := []string{
		"MATEMÁTICA\n\n\nLENGUA\n",
		"Primer grado\nPrimer grado\nARTES\nx",
		"a\nb\nCIENCIAS NATURALES\n\nc\nSexto grado\n\n",
		"\r\nSegundo grado\r\nMÚSICA\r\ncanciones\r\n",
	}
	for _, text := range texts {
		recs, err := newEngine().Segment(context.Background(), text, uuid.Nil)
		require.NoError(t, err)
		assertRangesValid(t, text, recs)
	}
}

func TestFallbackAreaLabel(t *testing.T) {
	assert.Equal(t, "EJES TRANSVERSALES", fallbackAreaLabel("EJES   TRANSVERSALES:"))
	assert.Equal(t, "", fallbackAreaLabel("- A -"))
	assert.Len(t, []rune(fallbackAreaLabel(strings.Repeat("Á", 100))), 80)
}

func TestIsUpper(t *testing.T) {
	assert.True(t, isUpper("MATEMÁTICA"))
	assert.True(t, isUpper("EJE 1: NÚMEROS"))
	assert.False(t, isUpper("Matemática"))
	assert.False(t, isUpper("123 -- 45"))
}
