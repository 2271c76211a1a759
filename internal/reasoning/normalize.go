package reasoning

import (
	"strings"
	"unicode/utf8"

	"privgate/internal/validate"
	"privgate/pkg/types"
)

const emptyAnswer = "No response."

// Normalize clamps a response to the documented bounds. Citations are
// trimmed, de-duplicated and capped; the summary is cut on a rune boundary.
func Normalize(resp types.ReasoningResponse) types.ReasoningResponse {
	resp.Summary = strings.TrimSpace(resp.Summary)
	if utf8.RuneCountInString(resp.Summary) > validate.MaxSummaryChars {
		resp.Summary = string([]rune(resp.Summary)[:validate.MaxSummaryChars])
	}
	seen := make(map[string]struct{}, len(resp.Citations))
	cites := make([]string, 0, len(resp.Citations))
	for _, c := range resp.Citations {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cites = append(cites, c)
		if len(cites) == validate.MaxCitations {
			break
		}
	}
	resp.Citations = cites
	return resp
}

func answer(text string, req types.ReasoningRequest) types.ReasoningResponse {
	text = strings.TrimSpace(text)
	if text == "" {
		text = emptyAnswer
	}
	texts := append([]string{req.Prompt, text}, req.Context...)
	return Normalize(types.ReasoningResponse{
		Summary:   text,
		Citations: CanonicalCitations(texts...),
	})
}
