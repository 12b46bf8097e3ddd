// internal/pipeline/extractor.go
package pipeline

import (
	"encoding/json"
	"strings"
)

// ExtractedDocument is a parsed candidate structure derived from a raw
// reply, possibly missing fields the spec requires. Reconciliation copies
// it rather than mutating it, so it stays usable for diagnostics.
type ExtractedDocument struct {
	Fields   map[string]interface{}
	Repaired bool
}

// Extract isolates and parses the most plausible JSON object from noisy
// free-text model output. It is read-only analysis: the input is never
// modified, and every failure is a typed *ExtractionError.
//
// When multiple JSON-like fragments appear, the outermost first-`{` to
// last-`}` pair wins; no multi-candidate disambiguation is attempted.
func Extract(raw string) (*ExtractedDocument, error) {
	text := stripFences(strings.TrimSpace(raw))

	first := strings.Index(text, "{")
	if first < 0 {
		return nil, &ExtractionError{Kind: ExtractionNotJSON, RawText: text}
	}

	last := strings.LastIndex(text, "}")
	var candidate string
	if last > first {
		candidate = text[first : last+1]
	} else {
		// No closing brace after the opener; hand the tail to the
		// truncation repair below.
		candidate = text[first:]
	}

	fields := make(map[string]interface{})
	parseErr := json.Unmarshal([]byte(candidate), &fields)
	if parseErr == nil {
		return &ExtractedDocument{Fields: fields}, nil
	}

	// One-shot repair for output truncated by a generation length limit:
	// close the brace deficit and parse once more.
	opens := strings.Count(candidate, "{")
	closes := strings.Count(candidate, "}")
	if opens > closes {
		repaired := candidate + strings.Repeat("}", opens-closes)
		fields = make(map[string]interface{})
		if err := json.Unmarshal([]byte(repaired), &fields); err == nil {
			return &ExtractedDocument{Fields: fields, Repaired: true}, nil
		}
	}

	return nil, &ExtractionError{Kind: ExtractionUnparseable, RawText: text, Err: parseErr}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving inner text untouched.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	rest := text[3:]
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		// Drop the opening fence line, including any language tag.
		rest = rest[idx+1:]
	} else {
		return text
	}

	rest = strings.TrimSpace(rest)
	if strings.HasSuffix(rest, "```") {
		rest = strings.TrimSpace(rest[:len(rest)-3])
	}
	return rest
}
