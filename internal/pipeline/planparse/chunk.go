package planparse

import "strings"

// Default window sizes, in runes.
const (
	DefaultMaxChars = 6000
	DefaultOverlap  = 400
)

// Chunk splits text into overlapping windows of at most maxChars runes. A window
// that is not the last one ends at its last newline when that newline lies past
// the middle of the window. Consecutive windows share up to overlap runes, and
// overlap is capped at half a window.
func Chunk(text string, maxChars, overlap int) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	overlap = max(0, min(overlap, maxChars/2))

	runes := []rune(clean)
	n := len(runes)
	var out []string
	for start := 0; start < n; {
		end := min(n, start+maxChars)
		if end < n {
			if nl := lastNewline(runes[start:end]); nl > maxChars/2 {
				end = start + nl
			}
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end >= n {
			break
		}
		start = max(end-overlap, start+1)
	}
	return out
}

func lastNewline(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			return i
		}
	}
	return -1
}
