package cli

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privgate/internal/audit"
	"privgate/internal/registry"

	"github.com/rs/zerolog"
)

// run executes the root command with args against a config file that keeps
// every path inside dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, "privgate.toml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := strings.Join([]string{
			`api_key = "0123456789abcdef0123"`,
			`integrity_source = "inline"`,
			`models_dir = "` + filepath.Join(dir, "models") + `"`,
			`registry_dir = "` + filepath.Join(dir, "registry") + `"`,
			`audit_ledger = "` + filepath.Join(dir, "audit", "ledger.jsonl") + `"`,
			`log_level = "error"`,
		}, "\n") + "\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	}
	root := NewRootCmd("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestNewAPIKey(t *testing.T) {
	a, b := NewAPIKey(), NewAPIKey()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}

func TestKeygenAPIKey(t *testing.T) {
	out, err := run(t, t.TempDir(), "keygen", "api-key")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)
}

func TestModelList_Inline(t *testing.T) {
	out, err := run(t, t.TempDir(), "model", "list")
	require.NoError(t, err)
	var resp struct {
		Models []struct {
			ID      string `json:"id"`
			Present bool   `json:"present"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Models)
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, m.ID)
		assert.False(t, m.Present)
	}
	assert.Contains(t, ids, "phi-3-mini-instruct-q4_k_m")
}

func TestModelActive_NoneSet(t *testing.T) {
	out, err := run(t, t.TempDir(), "model", "active")
	require.NoError(t, err)
	assert.Contains(t, out, `"set": false`)
}

func TestModelUse_NotListed(t *testing.T) {
	_, err := run(t, t.TempDir(), "model", "use", "no-such-model")
	require.Error(t, err)
	assert.True(t, registry.IsNotListed(err))
}

func TestRegistrySignAndVerify(t *testing.T) {
	dir := t.TempDir()
	regDir := filepath.Join(dir, "registry")
	require.NoError(t, os.MkdirAll(regDir, 0o755))
	doc := `{"format_version":1,"entries":[{"id":"phi","sha256":"` + strings.Repeat("ab", 32) + `","source_uri":"https://example.com/phi.gguf","trusted":true}]}`
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.RegistryFile), []byte(doc), 0o644))

	keyPath := filepath.Join(dir, "keys", "registry.key")
	_, err := run(t, dir, "keygen", "signer", "--alg", "ed25519", "--out", keyPath)
	require.NoError(t, err)
	_, err = run(t, dir, "keygen", "signer", "--out", keyPath)
	require.Error(t, err, "existing key must not be overwritten")

	_, err = run(t, dir, "registry", "sign", "--key", keyPath, "--write-public-key")
	require.NoError(t, err)

	out, err := run(t, dir, "registry", "verify")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, registry.AlgEd25519, got["algorithm"])
	assert.EqualValues(t, 1, got["trusted"])
	assert.NotEmpty(t, got["cid"])

	// Tampering after signing is detected.
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.RegistryFile), []byte(strings.Replace(doc, `"trusted":true`, `"trusted":false`, 1)), 0o644))
	_, err = run(t, dir, "registry", "verify")
	require.Error(t, err)
	assert.True(t, registry.IsUnavailable(err))
}

func TestRegistrySign_Dilithium(t *testing.T) {
	dir := t.TempDir()
	regDir := filepath.Join(dir, "registry")
	require.NoError(t, os.MkdirAll(regDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.RegistryFile), []byte(`[]`), 0o644))

	s, err := registry.GenerateSigner(registry.AlgDilithium3, rand.Reader)
	require.NoError(t, err)
	keyPath := filepath.Join(dir, "d3.key")
	require.NoError(t, os.WriteFile(keyPath, []byte(s.PrivateKeyText()), 0o600))

	_, err = run(t, dir, "registry", "sign", "--key", keyPath, "--write-public-key")
	require.NoError(t, err)
	out, err := run(t, dir, "registry", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, registry.AlgDilithium3)
}

func TestAuditVerify(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "audit", "ledger.jsonl")
	l := audit.New(ledgerPath, zerolog.Nop())
	_, err := l.Append("store", map[string]any{"k": "v"})
	require.NoError(t, err)
	_, err = l.Append("store", map[string]any{"k": "w"})
	require.NoError(t, err)

	out, err := run(t, dir, "audit", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, `"records": 2`)

	b, err := os.ReadFile(ledgerPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ledgerPath, bytes.Replace(b, []byte(`"w"`), []byte(`"x"`), 1), 0o644))
	_, err = run(t, dir, "audit", "verify")
	require.Error(t, err)
}

func TestRequestLogLevel(t *testing.T) {
	assert.Equal(t, "debug", requestLogLevel("debug"))
	assert.Equal(t, "info", requestLogLevel("info"))
	assert.Equal(t, "error", requestLogLevel("warn"))
	assert.Equal(t, "off", requestLogLevel("disabled"))
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "privgate.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_key = \"short\"\n"), 0o644))
	t.Setenv("API_KEY", "")
	_, err := run(t, dir, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")
}
