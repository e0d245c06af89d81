package pdf

import (
	"strings"
	"unicode"
)

// Sanitize keeps printable ASCII only. Whitespace of any kind becomes a plain
// space; everything else outside 0x20-0x7E (Arabic text included) is dropped,
// since the base fonts carry no glyphs for it.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// EscapeString returns s ready to be placed between the parentheses of a PDF
// literal string. It sanitizes first, so callers cannot skip that step.
func EscapeString(s string) string {
	s = Sanitize(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
