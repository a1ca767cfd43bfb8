package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_.\-]`)

// SafeFilename replaces every character that is not a letter, digit, "_", "." or "-" with "_".
func SafeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
}

// ResolveTitle prefers the trimmed title, then the safe filename, then the default title.
func ResolveTitle(title, filename string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if f := SafeFilename(filename); f != "" {
		return f
	}
	return constants.DefaultDocumentTitle
}

// AllowedExt checks if a file extension is one we can extract text from.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
