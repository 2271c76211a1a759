package reasoning

import (
	"regexp"
	"strings"
)

type authority struct {
	pattern   *regexp.Regexp
	canonical string
}

// authorities maps recognizable references to their canonical citation.
var authorities = []authority{
	{
		pattern:   regexp.MustCompile(`(?i)\bart(?:icolo|\.)?\s*1218(?:\s*c\.?\s*c\.?)?\b`),
		canonical: "Codice Civile, Art. 1218 - Responsabilità del debitore",
	},
	{
		pattern:   regexp.MustCompile(`(?i)\bcass(?:azione|\.)?\s*(?:civ\.?\s*)?(?:n\.\s*)?30574\s*/\s*2022\b`),
		canonical: "Corte di Cassazione, Sez. III, Sent. n. 30574/2022",
	},
}

// CanonicalCitations returns the canonical form of every known authority
// mentioned in texts, in table order, without duplicates.
func CanonicalCitations(texts ...string) []string {
	joined := strings.Join(texts, "\n")
	var out []string
	for _, a := range authorities {
		if a.pattern.MatchString(joined) {
			out = append(out, a.canonical)
		}
	}
	return out
}
