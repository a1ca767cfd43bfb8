package catalog

import (
	"context"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

var defaultGradeAliases = [][2]string{
	{"primero", "1"}, {"primer", "1"}, {"1", "1"},
	{"segundo", "2"}, {"2", "2"},
	{"tercero", "3"}, {"tercer", "3"}, {"3", "3"},
	{"cuarto", "4"}, {"4", "4"},
	{"quinto", "5"}, {"5", "5"},
	{"sexto", "6"}, {"6", "6"},
	{"séptimo", "7"}, {"septimo", "7"}, {"7", "7"},
}

var defaultAreaKeywords = [][2]string{
	{"Prácticas del Lenguaje", `pr[aá]cticas?\s+del\s+lenguaje`},
	{"Matemática", `matem[aá]tica`},
	{"Ciencias Naturales", `ciencias?\s+naturales?`},
	{"Ciencias Sociales", `ciencias?\s+sociales?`},
	{"Educación Física", `educaci[oó]n\s+f[ií]sica`},
	{"Educación Tecnológica", `educaci[oó]n\s+tecnol[oó]gica`},
	{"Formación Ética y Ciudadana", `formaci[oó]n\s+[eé]tica\s+y\s+ciudadana`},
	{"Informática", `inform[aá]tica`},
	{"Lengua", `\blengua\b`},
	{"Inglés", `\bingl[eé]s\b`},
	{"Artes", `\bartes?\b`},
	{"Música", `\bm[uú]sica\b`},
	{"Plástica", `\bpl[aá]stica\b`},
	{"Teatro", `\bteatro\b`},
}

// defaultPrompts holds the built-in text for each prompt context.
var defaultPrompts = map[string]string{
	constants.PromptContextCurriculumParser: "Analiza el documento curricular sin asumir un formato fijo. " +
		"Detecta grados/cursos, materias/áreas y objetivos de aprendizaje (competencias, propósitos o " +
		"resultados esperados) usando títulos y secciones del texto sin inventar información. " +
		"Devuelve JSON con jerarquía grado → materia → objetivos.",
}

// DefaultGradeAliases returns a fresh copy of the built-in alias map.
func DefaultGradeAliases() map[string]string {
	out := make(map[string]string, len(defaultGradeAliases))
	for _, kv := range defaultGradeAliases {
		out[kv[0]] = kv[1]
	}
	return out
}

// DefaultAreaKeywords returns the built-in keyword table in catalog order.
func DefaultAreaKeywords() []entity.AreaKeyword {
	out := make([]entity.AreaKeyword, 0, len(defaultAreaKeywords))
	for _, kv := range defaultAreaKeywords {
		out = append(out, entity.AreaKeyword{Label: kv[0], Pattern: kv[1]})
	}
	return out
}

// DefaultPrompt returns the built-in prompt for a context. Unknown contexts fall
// back to the curriculum parser prompt.
func DefaultPrompt(promptContext string) string {
	if p, ok := defaultPrompts[promptContext]; ok {
		return p
	}
	return defaultPrompts[constants.PromptContextCurriculumParser]
}

// Writer persists catalog rows.
type Writer interface {
	UpsertGradeAlias(ctx context.Context, row entity.GradeAlias) error
	UpsertAreaKeyword(ctx context.Context, row entity.AreaKeyword) error
	UpsertPrompt(ctx context.Context, row entity.Prompt) error
}

// SeedDefaults writes the built-in catalog as global rows.
func SeedDefaults(ctx context.Context, w Writer) error {
	for _, kv := range defaultGradeAliases {
		if err := w.UpsertGradeAlias(ctx, entity.GradeAlias{Alias: kv[0], NormalizedValue: kv[1]}); err != nil {
			return err
		}
	}
	for _, kw := range DefaultAreaKeywords() {
		if err := w.UpsertAreaKeyword(ctx, kw); err != nil {
			return err
		}
	}
	for promptContext, text := range defaultPrompts {
		if err := w.UpsertPrompt(ctx, entity.Prompt{Context: promptContext, Text: text, Active: true}); err != nil {
			return err
		}
	}
	return nil
}
