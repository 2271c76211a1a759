package validate

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize removes control characters other than newline and tab, applies
// NFC normalization, collapses each whitespace run to one space (or one
// newline when the run contains a newline) and trims the ends.
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	s = norm.NFC.String(b.String())

	b.Reset()
	inSpace, sawNewline := false, false
	flush := func() {
		if !inSpace {
			return
		}
		if sawNewline {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inSpace, sawNewline = false, false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			if r == '\n' {
				sawNewline = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return strings.TrimSpace(b.String())
}
