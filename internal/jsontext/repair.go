package jsontext

import (
	"log"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fenceMarkerRE = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	htmlKeyRE     = regexp.MustCompile(`"html"\s*:\s*"`)
)

// Repair runs the structural fallback chain on text that failed to parse
// after sanitizing. It never parses; the caller re-attempts once.
func Repair(text string) string {
	text = RemoveTrailingCommas(text)
	text = RemoveFences(text)
	return EscapeMarkupQuotes(text)
}

// RemoveTrailingCommas drops commas that are followed only by whitespace and
// a closing '}' or ']'. Commas inside string literals are kept.
func RemoveTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var sc scanner
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		inString, escaped := sc.step(r)
		if r == ',' && !inString && !escaped && closesAfter(text[i+size:]) {
			i += size
			continue
		}
		b.WriteString(text[i : i+size])
		i += size
	}
	return b.String()
}

func closesAfter(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(rest, "}") || strings.HasPrefix(rest, "]")
}

// RemoveFences strips any fenced-code-block markers still present.
func RemoveFences(text string) string {
	return fenceMarkerRE.ReplaceAllString(text, "")
}

// EscapeMarkupQuotes is an aggressive, heuristic repair: inside "html" values
// that contain markup, every unescaped double quote that does not look like
// the value's closing quote is escaped. It can over- or under-correct.
func EscapeMarkupQuotes(text string) string {
	locs := htmlKeyRE.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 32)
	prev := 0
	repaired := 0
	for _, loc := range locs {
		start := loc[1]
		if start < prev {
			continue
		}
		end := markupValueEnd(text, start)
		if end < 0 {
			continue
		}
		value := text[start:end]
		if !strings.Contains(value, "<") || !strings.Contains(value, ">") {
			continue
		}
		escaped, n := escapeBareQuotes(value)
		if n == 0 {
			continue
		}
		b.WriteString(text[prev:start])
		b.WriteString(escaped)
		prev = end
		repaired += n
	}
	if repaired == 0 {
		return text
	}
	b.WriteString(text[prev:])
	log.Printf("WARN: aggressive repair escaped %d quote(s) in html values", repaired)
	return b.String()
}

// markupValueEnd finds the quote closing a value that starts at start: the
// last unescaped quote followed by optional whitespace, a ',' '}' or ']', and
// then the start of another member or the end of a container.
func markupValueEnd(text string, start int) int {
	end := -1
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c != '"' {
			continue
		}
		if endsValue(text[i+1:]) {
			end = i
			if startsMember(text[i+1:]) {
				break
			}
		}
	}
	return end
}

func endsValue(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '}', ']':
		return true
	case ',':
		next := strings.TrimLeft(rest[1:], " \t\r\n")
		return next == "" || next[0] == '"' || next[0] == '{' || next[0] == '}' || next[0] == ']'
	}
	return false
}

// startsMember reports a comma followed by `"key":`, which strongly suggests
// the next object member.
func startsMember(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if !strings.HasPrefix(rest, ",") {
		return strings.HasPrefix(rest, "}") || strings.HasPrefix(rest, "]")
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return false
	}
	closing := strings.Index(rest[1:], `"`)
	if closing < 0 {
		return false
	}
	after := strings.TrimLeft(rest[closing+2:], " \t\r\n")
	return strings.HasPrefix(after, ":")
}

func escapeBareQuotes(value string) (string, int) {
	var b strings.Builder
	b.Grow(len(value) + 8)
	n := 0
	escape := false
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escape:
			escape = false
		case c == '\\':
			escape = true
		case c == '"':
			b.WriteByte('\\')
			n++
		}
		b.WriteByte(c)
	}
	return b.String(), n
}
