package jsontext

import (
	"strings"
	"unicode/utf8"
)

// scanState is the position of the scanner relative to JSON string literals.
type scanState int

const (
	stateOutside scanState = iota
	stateInString
)

// scanner walks JSON-ish text one rune at a time tracking string context.
type scanner struct {
	state         scanState
	escapePending bool
}

// step advances the automaton past r and reports whether r was part of a
// string literal's content (quotes excluded) and whether it was escaped.
func (s *scanner) step(r rune) (inString, escaped bool) {
	if s.escapePending {
		s.escapePending = false
		return s.state == stateInString, true
	}
	switch {
	case r == '\\':
		s.escapePending = true
		return s.state == stateInString, false
	case r == '"' && s.state == stateOutside:
		s.state = stateInString
		return false, false
	case r == '"' && s.state == stateInString:
		s.state = stateOutside
		return false, false
	}
	return s.state == stateInString, false
}

// Sanitize replaces raw line feeds, carriage returns and tabs inside string
// literals with their two-character escapes. Whitespace outside strings is
// left alone. Sanitize(Sanitize(t)) == Sanitize(t).
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/16)

	var sc scanner
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		raw := text[i : i+size]
		i += size

		inString, escaped := sc.step(r)
		if !inString || escaped {
			b.WriteString(raw)
			continue
		}
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteString(raw)
		}
	}
	return b.String()
}
