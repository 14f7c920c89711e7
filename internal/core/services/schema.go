package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParseOutcome reports how model output was interpreted.
type ParseOutcome struct {
	// Defaulted is true when the output did not match the schema and the
	// default value was returned instead.
	Defaulted bool

	// Reason explains why the default was used.
	Reason string
}

// ParseWithSchema decodes model output into T. Surrounding prose and
// markdown code fences are stripped. Every name in required must be
// present and non-null at the top level of the JSON object. On any
// mismatch def is returned with Defaulted set.
func ParseWithSchema[T any](raw string, def T, required ...string) (T, ParseOutcome) {
	body, ok := extractJSONObject(raw)
	if !ok {
		return def, ParseOutcome{Defaulted: true, Reason: "no JSON object in output"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return def, ParseOutcome{Defaulted: true, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	for _, name := range required {
		v, present := fields[name]
		if !present || string(v) == "null" {
			return def, ParseOutcome{Defaulted: true, Reason: fmt.Sprintf("missing field %q", name)}
		}
	}

	var out T
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return def, ParseOutcome{Defaulted: true, Reason: fmt.Sprintf("schema mismatch: %v", err)}
	}
	return out, ParseOutcome{}
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// maxPromptChars caps the document text embedded in a prompt.
const maxPromptChars = 24000

// renderPrompt substitutes {{name}} placeholders in a prompt template.
func renderPrompt(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// truncateText shortens text to at most n bytes on a rune boundary.
func truncateText(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
