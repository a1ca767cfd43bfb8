package llm

import "strings"

// ExtractJSON returns the JSON payload embedded in model output: a Markdown
// fence is removed, then the span from the first '[' or '{' to the last ']' or
// '}' is kept. It returns "" when no such span exists.
func ExtractJSON(raw string) string {
	return jsonCandidate(stripFence(raw))
}

// stripFence removes a leading ``` or ```json line and a trailing fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func jsonCandidate(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	end := max(strings.LastIndexByte(s, ']'), strings.LastIndexByte(s, '}'))
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
