// Package validate sanitizes and bounds-checks inbound payloads before they
// reach the reasoning router.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"privgate/pkg/types"
)

// QueryPromptPrefix starts every prompt built from a /query text.
const QueryPromptPrefix = "Summarize and reason about: "

// PrepareQuery turns a free-text query into a reasoning request. The input
// is never modified; on error nothing is returned but the error.
func PrepareQuery(q types.QueryRequest) (types.ReasoningRequest, error) {
	text := Sanitize(q.Text)
	if text == "" {
		return types.ReasoningRequest{}, invalid("text", "must not be empty")
	}
	if ContainsInjection(text) {
		return types.ReasoningRequest{}, invalid("text", "contains disallowed markup")
	}
	if utf8.RuneCountInString(text) > MaxPromptChars-utf8.RuneCountInString(QueryPromptPrefix) {
		return types.ReasoningRequest{}, invalid("text", fmt.Sprintf("exceeds %d characters", MaxPromptChars-utf8.RuneCountInString(QueryPromptPrefix)))
	}
	if len(q.Files) > MaxFiles {
		return types.ReasoningRequest{}, invalid("files", fmt.Sprintf("at most %d files allowed", MaxFiles))
	}
	files := make([]string, 0, len(q.Files))
	for i, f := range q.Files {
		if err := ValidateFilePath(f); err != nil {
			return types.ReasoningRequest{}, invalid(fmt.Sprintf("files[%d]", i), err.Error())
		}
		files = append(files, f)
	}
	req := types.ReasoningRequest{Prompt: QueryPromptPrefix + text, Context: files}
	if err := ValidateBounds(req); err != nil {
		return types.ReasoningRequest{}, err
	}
	return req, nil
}

// PrepareReasoning sanitizes, screens and bounds-checks a reasoning request
// and returns a cleaned copy.
func PrepareReasoning(in types.ReasoningRequest) (types.ReasoningRequest, error) {
	out := types.ReasoningRequest{Prompt: Sanitize(in.Prompt)}
	if ContainsInjection(out.Prompt) {
		return types.ReasoningRequest{}, invalid("prompt", "contains disallowed markup")
	}
	if len(in.Context) > MaxContextEntries {
		return types.ReasoningRequest{}, invalid("context", fmt.Sprintf("at most %d entries allowed", MaxContextEntries))
	}
	if len(in.Context) > 0 {
		out.Context = make([]string, 0, len(in.Context))
	}
	for i, c := range in.Context {
		c = Sanitize(c)
		if ContainsInjection(c) {
			return types.ReasoningRequest{}, invalid(fmt.Sprintf("context[%d]", i), "contains disallowed markup")
		}
		out.Context = append(out.Context, c)
	}
	if err := ValidateBounds(out); err != nil {
		return types.ReasoningRequest{}, err
	}
	return out, nil
}

// CheckResponse reports whether a reasoning response is well formed.
func CheckResponse(r types.ReasoningResponse) (bool, string) {
	switch {
	case strings.TrimSpace(r.Summary) == "":
		return false, "Empty reasoning response"
	case utf8.RuneCountInString(r.Summary) > MaxSummaryChars:
		return false, fmt.Sprintf("Summary exceeds %d characters", MaxSummaryChars)
	case len(r.Citations) > MaxCitations:
		return false, fmt.Sprintf("More than %d citations", MaxCitations)
	case r.ErrorKind != "":
		return false, "Response reports an error: " + r.ErrorKind
	}
	return true, "Response appears valid"
}
