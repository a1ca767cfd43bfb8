package planparse

import (
	"fmt"
	"strings"
)

// Instruction asks the model for a strict JSON list of plan items.
const Instruction = `Actúas como un parser semántico de documentos educativos (planes de estudio, diseños curriculares, programas, bibliografías).
Recibirás un FRAGMENTO de texto en español perteneciente a un plan de estudio.
Debes devolver EXCLUSIVAMENTE un JSON válido (sin comentarios ni texto extra) con una lista de ítems, donde cada ítem tiene:
- "grado": string con el número de grado (por ejemplo "1", "2", "3") o null si no se especifica en este fragmento.
- "area": nombre de la materia/área (por ejemplo Lengua, Matemática, Ciencias Sociales, Ciencias Naturales, Educación Artística, Inglés, etc.). Si el fragmento es más bien bibliográfico, puedes usar áreas temáticas como "Educación intercultural", "Alfabetización inicial", etc.
- "descripcion": un resumen corto (2 a 4 frases máximo) con los contenidos u objetivos asociados a ese grado y área en este fragmento. No pegues bloques largos de texto literal: sintetiza.
Si el fragmento no tiene información aprovechable, devuelve [].`

// BuildPrompt frames one window; index is zero-based.
func BuildPrompt(fragment string, index int) string {
	return strings.TrimSpace(fmt.Sprintf("%s\n\nFragmento #%d:\n<<<\n%s\n>>>\nDevuelve solo el JSON.", Instruction, index+1, fragment))
}
