// Package jsontext turns free-form model output into text that json.Unmarshal
// can accept: candidate extraction, string-literal sanitizing and a last-resort
// structural repair chain. Everything here is a pure text-to-text function.
package jsontext

import (
	"regexp"
	"strings"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// fencedBlockRE matches the first complete fenced code block: an opening
// fence with an optional language tag, a body and a closing fence.
var fencedBlockRE = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)\r?\n?[ \t]*```")

// Extract returns the JSON-object-shaped candidate inside text. A fenced block
// wins over anything outside it; without one the raw text is the candidate.
// Surrounding prose is dropped by slicing from the first '{' to the last '}'.
// The candidate is not validated.
func Extract(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.ExtractionError{Reason: "response text is empty"}
	}

	candidate := text
	if m := fencedBlockRE.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		candidate = m[1]
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		return candidate[start : end+1], nil
	}
	return strings.TrimSpace(candidate), nil
}
