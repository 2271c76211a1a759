package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privgate/internal/inference"
	"privgate/internal/registry"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

type fakeRemote struct {
	text string
	err  error
	got  types.ReasoningRequest
}

func (f *fakeRemote) Complete(_ context.Context, req types.ReasoningRequest) (string, error) {
	f.got = req
	return f.text, f.err
}

type memStore struct {
	path string
	err  error
}

func (m *memStore) Get(context.Context) (string, bool, error) { return m.path, m.path != "", m.err }
func (m *memStore) Set(_ context.Context, p string) error    { m.path = p; return nil }

type fakeVerifier map[string]bool

func (f fakeVerifier) IsVerified(p string) bool { return f[p] }

func (f fakeVerifier) CheckTrust(context.Context, string) error { return nil }

// revokedVerifier still holds a verification but the trust source refuses.
type revokedVerifier struct{ err error }

func (revokedVerifier) IsVerified(string) bool                       { return true }
func (v revokedVerifier) CheckTrust(context.Context, string) error { return v.err }

type fakeGen struct {
	out    string
	err    error
	path   string
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, path, prompt string) (inference.FinalResult, error) {
	f.path, f.prompt = path, prompt
	return inference.FinalResult{Content: f.out}, f.err
}

func TestRouter_ModeFollowsRemote(t *testing.T) {
	assert.Equal(t, ModeLocal, NewRouter(Config{}).Mode())
	assert.Equal(t, ModeRemote, NewRouter(Config{Remote: &fakeRemote{}}).Mode())
}

func TestReasonRemote_Success(t *testing.T) {
	fr := &fakeRemote{text: "Under art. 1218 c.c. the debtor is liable."}
	r := NewRouter(Config{Remote: fr, Logger: zerolog.Nop()})

	resp, err := r.Reason(context.Background(), types.ReasoningRequest{Prompt: "Summarize contract X", Context: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "Under art. 1218 c.c. the debtor is liable.", resp.Summary)
	assert.Equal(t, []string{"Codice Civile, Art. 1218 - Responsabilità del debitore"}, resp.Citations)
	assert.Empty(t, resp.ErrorKind)
	assert.Equal(t, "Summarize contract X", fr.got.Prompt)
}

func TestReasonRemote_FailureIsDegraded(t *testing.T) {
	fr := &fakeRemote{err: upstream(ClassTimeout, errors.New("dial tcp 10.0.0.1: i/o timeout"))}
	r := NewRouter(Config{Remote: fr, Logger: zerolog.Nop()})

	resp, err := r.Reason(context.Background(), types.ReasoningRequest{Prompt: "x"})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ClassTimeout, resp.ErrorKind)
	assert.Contains(t, resp.Summary, ClassTimeout)
	assert.NotContains(t, resp.Summary, "10.0.0.1")
	assert.NotNil(t, resp.Citations)
}

func TestReasonRemote_UnclassifiedErrorBecomesUpstreamError(t *testing.T) {
	r := NewRouter(Config{Remote: &fakeRemote{err: errors.New("boom")}, Logger: zerolog.Nop()})
	resp, err := r.ReasonRemote(context.Background(), types.ReasoningRequest{Prompt: "x"})
	require.True(t, IsUpstreamError(err))
	assert.Equal(t, ClassError, resp.ErrorKind)
}

func TestReasonRemote_NotConfigured(t *testing.T) {
	r := NewRouter(Config{Logger: zerolog.Nop()})
	resp, err := r.ReasonRemote(context.Background(), types.ReasoningRequest{Prompt: "x"})
	require.True(t, IsUpstreamError(err))
	assert.Equal(t, ClassUnavailable, resp.ErrorKind)
}

func TestReasonLocal_NoActiveModel(t *testing.T) {
	r := NewRouter(Config{Active: &memStore{}, Verifier: fakeVerifier{}, Local: &fakeGen{}})
	_, err := r.Reason(context.Background(), types.ReasoningRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoActiveModel)
}

func TestReasonLocal_NotVerified(t *testing.T) {
	gen := &fakeGen{out: "never"}
	r := NewRouter(Config{Active: &memStore{path: "/m/a.gguf"}, Verifier: fakeVerifier{}, Local: gen})
	_, err := r.Reason(context.Background(), types.ReasoningRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrModelNotVerified)
	assert.Empty(t, gen.path, "generation must not run on an unverified artifact")
}

func TestReasonLocal_RevokedTrustRefuses(t *testing.T) {
	gen := &fakeGen{out: "never"}
	r := NewRouter(Config{
		Active:   &memStore{path: "/m/a.gguf"},
		Verifier: revokedVerifier{err: registry.ErrMarkedUntrusted},
		Local:    gen,
		Logger:   zerolog.Nop(),
	})
	_, err := r.ReasonLocal(context.Background(), types.ReasoningRequest{Prompt: "x"})
	assert.True(t, registry.IsMarkedUntrusted(err))
	assert.Empty(t, gen.path, "generation must not run once trust is revoked")
}

func TestReasonLocal_VerifiedRuns(t *testing.T) {
	gen := &fakeGen{out: "Per Cass. Civ. 30574/2022, yes."}
	r := NewRouter(Config{
		Active:   &memStore{path: "/m/a.gguf"},
		Verifier: fakeVerifier{"/m/a.gguf": true},
		Local:    gen,
	})
	resp, err := r.Reason(context.Background(), types.ReasoningRequest{Prompt: "Does art. 1218 apply?", Context: []string{"clause 4"}})
	require.NoError(t, err)
	assert.Equal(t, "/m/a.gguf", gen.path)
	assert.Contains(t, gen.prompt, "- clause 4")
	assert.True(t, strings.HasSuffix(gen.prompt, "Request: Does art. 1218 apply?\nAnswer:"))
	assert.Equal(t, []string{
		"Codice Civile, Art. 1218 - Responsabilità del debitore",
		"Corte di Cassazione, Sez. III, Sent. n. 30574/2022",
	}, resp.Citations)
}

func TestReasonLocal_EmptyOutputAndErrors(t *testing.T) {
	base := Config{Active: &memStore{path: "/m/a.gguf"}, Verifier: fakeVerifier{"/m/a.gguf": true}}

	base.Local = &fakeGen{out: "   "}
	resp, err := NewRouter(base).ReasonLocal(context.Background(), types.ReasoningRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, emptyAnswer, resp.Summary)

	base.Local = &fakeGen{err: inference.ErrTooBusy}
	_, err = NewRouter(base).ReasonLocal(context.Background(), types.ReasoningRequest{Prompt: "x"})
	assert.True(t, inference.IsTooBusy(err))

	base.Local = nil
	_, err = NewRouter(base).ReasonLocal(context.Background(), types.ReasoningRequest{Prompt: "x"})
	assert.True(t, inference.IsDependencyUnavailable(err))
}

func TestNormalize_Clamps(t *testing.T) {
	cites := make([]string, 0, validate.MaxCitations+10)
	for i := 0; i < validate.MaxCitations+10; i++ {
		cites = append(cites, strings.Repeat("c", i+1))
	}
	cites = append(cites, "", "c")
	resp := Normalize(types.ReasoningResponse{
		Summary:   strings.Repeat("é", validate.MaxSummaryChars+5),
		Citations: cites,
	})
	assert.Len(t, []rune(resp.Summary), validate.MaxSummaryChars)
	assert.Len(t, resp.Citations, validate.MaxCitations)
	assert.Equal(t, "c", resp.Citations[0])
}

func TestCanonicalCitations(t *testing.T) {
	assert.Empty(t, CanonicalCitations("nothing relevant"))
	assert.Equal(t, []string{"Codice Civile, Art. 1218 - Responsabilità del debitore"},
		CanonicalCitations("see ART. 1218", "and art.1218 c.c. again"))
	assert.Equal(t, []string{"Corte di Cassazione, Sez. III, Sent. n. 30574/2022"},
		CanonicalCitations("Cass. civ. n. 30574/2022"))
	assert.Empty(t, CanonicalCitations("art. 12180"))
}
