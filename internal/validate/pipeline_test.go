package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privgate/pkg/types"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Field
}

func TestPrepareQuery(t *testing.T) {
	req, err := PrepareQuery(types.QueryRequest{Text: "Explain liability  under \x07 Art. 1218"})
	require.NoError(t, err)
	assert.Equal(t, QueryPromptPrefix+"Explain liability under Art. 1218", req.Prompt)
	assert.Empty(t, req.Context)
	for _, r := range req.Prompt {
		assert.False(t, r < 0x20 && r != '\n', "control char %U in prompt", r)
	}
}

func TestPrepareQuery_Files(t *testing.T) {
	in := types.QueryRequest{Text: "x", Files: []string{"contracts/a.pdf", "b.txt"}}
	req, err := PrepareQuery(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"contracts/a.pdf", "b.txt"}, req.Context)

	for i, p := range []string{"../etc/passwd", "/etc/passwd", `a\b`, "C:/x", "a/../../b", "~/x", "a\x00b", ""} {
		_, err := PrepareQuery(types.QueryRequest{Text: "x", Files: []string{"ok.txt", p}})
		require.Error(t, err, "case %d %q", i, p)
		assert.Equal(t, "files[1]", fieldOf(t, err))
	}

	many := make([]string, MaxFiles+1)
	for i := range many {
		many[i] = "f.txt"
	}
	_, err = PrepareQuery(types.QueryRequest{Text: "x", Files: many})
	assert.Equal(t, "files", fieldOf(t, err))
}

func TestPrepareQuery_Rejects(t *testing.T) {
	_, err := PrepareQuery(types.QueryRequest{Text: " \t\x01 "})
	assert.Equal(t, "text", fieldOf(t, err))

	_, err = PrepareQuery(types.QueryRequest{Text: "<script>x</script>"})
	assert.Equal(t, "text", fieldOf(t, err))

	_, err = PrepareQuery(types.QueryRequest{Text: strings.Repeat("a", MaxPromptChars)})
	assert.Equal(t, "text", fieldOf(t, err))
}

func TestPrepareReasoning(t *testing.T) {
	in := types.ReasoningRequest{Prompt: " Summarize   contract X ", Context: []string{"clause\x00 1", "  "}}
	out, err := PrepareReasoning(in)
	require.NoError(t, err)
	assert.Equal(t, "Summarize contract X", out.Prompt)
	assert.Equal(t, []string{"clause 1", ""}, out.Context)
	assert.Equal(t, " Summarize   contract X ", in.Prompt, "input must not be mutated")
	assert.Equal(t, "clause\x00 1", in.Context[0], "input must not be mutated")
}

func TestPrepareReasoning_Bounds(t *testing.T) {
	_, err := PrepareReasoning(types.ReasoningRequest{Prompt: ""})
	assert.Equal(t, "prompt", fieldOf(t, err))

	_, err = PrepareReasoning(types.ReasoningRequest{Prompt: strings.Repeat("é", MaxPromptChars)})
	require.NoError(t, err, "limits count characters, not bytes")

	_, err = PrepareReasoning(types.ReasoningRequest{Prompt: strings.Repeat("a", MaxPromptChars+1)})
	assert.Equal(t, "prompt", fieldOf(t, err))

	_, err = PrepareReasoning(types.ReasoningRequest{Prompt: "p", Context: make([]string, MaxContextEntries+1)})
	assert.Equal(t, "context", fieldOf(t, err))

	_, err = PrepareReasoning(types.ReasoningRequest{Prompt: "p", Context: []string{"ok", strings.Repeat("b", MaxContextChars+1)}})
	assert.Equal(t, "context[1]", fieldOf(t, err))

	_, err = PrepareReasoning(types.ReasoningRequest{Prompt: "p", Context: []string{`<b onmouseover="x">`}})
	assert.Equal(t, "context[0]", fieldOf(t, err))
}

func TestCheckResponse(t *testing.T) {
	ok, reason := CheckResponse(types.ReasoningResponse{Summary: "fine"})
	assert.True(t, ok)
	assert.Equal(t, "Response appears valid", reason)

	ok, reason = CheckResponse(types.ReasoningResponse{Summary: "  "})
	assert.False(t, ok)
	assert.Equal(t, "Empty reasoning response", reason)

	ok, _ = CheckResponse(types.ReasoningResponse{Summary: strings.Repeat("s", MaxSummaryChars+1)})
	assert.False(t, ok)
	ok, _ = CheckResponse(types.ReasoningResponse{Summary: "s", Citations: make([]string, MaxCitations+1)})
	assert.False(t, ok)
	ok, _ = CheckResponse(types.ReasoningResponse{Summary: "s", ErrorKind: "upstream_timeout"})
	assert.False(t, ok)
}

func TestValidationError(t *testing.T) {
	err := invalid("prompt", "must not be empty")
	assert.Equal(t, "prompt: must not be empty", err.Error())
	assert.True(t, IsValidationError(err))
	assert.Equal(t, 400, err.(*ValidationError).StatusCode())
	assert.Equal(t, 413, ErrBodyTooLarge.StatusCode())
}
