package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"privgate/pkg/types"
)

// Bounds of the normalized reasoning exchange, counted in characters.
const (
	MaxPromptChars    = 50000
	MaxContextEntries = 20
	MaxContextChars   = 50000
	MaxSummaryChars   = 100000
	MaxCitations      = 100
	MaxFiles          = 20
	MaxPathChars      = 4096
)

// ValidateBounds checks the length and count limits of a reasoning request.
func ValidateBounds(req types.ReasoningRequest) error {
	n := utf8.RuneCountInString(req.Prompt)
	if n == 0 {
		return invalid("prompt", "must not be empty")
	}
	if n > MaxPromptChars {
		return invalid("prompt", fmt.Sprintf("exceeds %d characters", MaxPromptChars))
	}
	if len(req.Context) > MaxContextEntries {
		return invalid("context", fmt.Sprintf("at most %d entries allowed", MaxContextEntries))
	}
	for i, c := range req.Context {
		if utf8.RuneCountInString(c) > MaxContextChars {
			return invalid(fmt.Sprintf("context[%d]", i), fmt.Sprintf("exceeds %d characters", MaxContextChars))
		}
	}
	return nil
}

// ValidateFilePath accepts only relative, forward-slash paths that stay
// inside their base directory.
func ValidateFilePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty path")
	case utf8.RuneCountInString(p) > MaxPathChars:
		return fmt.Errorf("path too long")
	case strings.ContainsRune(p, 0):
		return fmt.Errorf("path contains NUL")
	case strings.ContainsRune(p, '\\'):
		return fmt.Errorf("path contains backslash")
	case strings.HasPrefix(p, "/") || strings.HasPrefix(p, "~"):
		return fmt.Errorf("path must be relative")
	case len(p) >= 2 && p[1] == ':':
		return fmt.Errorf("path must not carry a drive letter")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("path must not contain '..'")
		}
	}
	return nil
}
