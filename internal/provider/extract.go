package provider

import (
	"encoding/json"
	"strings"
)

// ExtractJSON locates the JSON object embedded in a model response. Models
// routinely wrap JSON in prose or a fenced code block, so the search prefers
// a candidate inside a ```-fence when one exists, then falls back to scanning
// the whole response. Returns "" when no parseable object is present.
func ExtractJSON(response string) string {
	if fenced := fencedContent(response); fenced != "" {
		if obj := firstValidObject(fenced); obj != "" {
			return obj
		}
	}
	return firstValidObject(response)
}

// fencedContent returns the body of the first ``` code fence, with any
// language tag ("json", "kql", ...) on the opening line stripped.
func fencedContent(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	rest := s[start+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	body := rest[:end]
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		// Opening line may carry a language tag.
		if !strings.ContainsAny(body[:nl], "{}") {
			body = body[nl+1:]
		}
	}
	return body
}

// firstValidObject returns the first balanced top-level {...} span that is
// valid JSON. Later candidates are tried when an earlier span is balanced
// but malformed.
func firstValidObject(s string) string {
	for _, candidate := range findObjectCandidates(s) {
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

// findObjectCandidates scans the input for top-level JSON object spans using
// a byte-level state machine that tracks brace depth, string literals, and
// escapes. Iterating bytes is safe for the ASCII delimiters involved because
// UTF-8 never embeds ASCII bytes inside multi-byte sequences.
func findObjectCandidates(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}
