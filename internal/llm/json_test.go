package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n[1]\n```":              "[1]",
		"```\n{\"a\":1}```":              `{"a":1}`,
		"```[]```":                       "[]",
		"Respuesta: {\"a\":[1]} listo.":  `{"a":[1]}`,
		"sin json":                       "",
		"}{":                             "",
		"texto [ abierto":                "",
		"  [1, 2] y luego {":             "[1, 2]",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractJSON(in), in)
	}
}
