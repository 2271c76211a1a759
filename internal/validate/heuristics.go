package validate

import "regexp"

// injectionPattern is a denylist of markup and script-injection markers.
// It is a heuristic, not a parser and not a security boundary: anything that
// renders model output must still escape it for its own context.
var injectionPattern = regexp.MustCompile(`(?i)<\s*script|javascript\s*:|vbscript\s*:|\bdata:|<[^>]*\bon[a-z]+\s*=`)

// ContainsInjection reports whether s matches the injection denylist.
func ContainsInjection(s string) bool {
	return injectionPattern.MatchString(s)
}
