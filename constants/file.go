package constants

import "strings"

// Source formats accepted by the text extractor.
const (
	PDF = "PDF"
	TXT = "TXT"
)

// FileTypes holds the formats stored on curriculum documents.
var FileTypes = []string{PDF, TXT}

// AllowedExtensions holds the file extensions accepted for curriculum uploads.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"txt":  TXT,
	"text": TXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns PDF or TXT for a known extension and "" otherwise.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// MapMimeToFormat inspects a declared media type. "application/pdf" maps to PDF and
// any "text/*" type to TXT.
func MapMimeToFormat(mime string) string {
	m := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case m == "":
		return ""
	case strings.Contains(m, "pdf"):
		return PDF
	case strings.Contains(m, "text"):
		return TXT
	}
	return ""
}
