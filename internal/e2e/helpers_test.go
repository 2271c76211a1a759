package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"privgate/internal/config"
	"privgate/internal/gateway"
	"privgate/internal/httpapi"
	"privgate/internal/registry"
)

const apiKey = "e2e-api-key-0123456789"

type env struct {
	srv       *httptest.Server
	gw        *gateway.Gateway
	cfg       config.Config
	modelsDir string
	regDir    string
	srcDir    string
	remote    *fakeRemote
}

type artifact struct {
	id      string
	file    string
	content []byte
	trusted bool
}

func digestOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeSignedRegistry publishes artifacts under srcDir and writes an
// ed25519-signed registry listing them into regDir.
func writeSignedRegistry(t *testing.T, regDir, srcDir string, arts []artifact) {
	t.Helper()
	require.NoError(t, os.MkdirAll(regDir, 0o755))
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	type entry struct {
		ID        string `json:"id"`
		Name      string `json:"display_name"`
		SourceURI string `json:"source_uri"`
		SHA256    string `json:"sha256"`
		Trusted   bool   `json:"trusted"`
		Filename  string `json:"filename"`
	}
	doc := struct {
		FormatVersion int     `json:"format_version"`
		Entries       []entry `json:"entries"`
	}{FormatVersion: 1}
	for _, a := range arts {
		src := filepath.Join(srcDir, a.file)
		require.NoError(t, os.WriteFile(src, a.content, 0o644))
		doc.Entries = append(doc.Entries, entry{
			ID: a.id, Name: a.id, SourceURI: "file://" + src,
			SHA256: digestOf(a.content), Trusted: a.trusted, Filename: a.file,
		})
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	signer, err := registry.GenerateSigner(registry.AlgEd25519, rand.Reader)
	require.NoError(t, err)
	sig, err := signer.Sign(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.RegistryFile), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.SignatureFile), sig, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, registry.PublicKeyFile), []byte(signer.PublicKeyText()), 0o644))
}

// fakeRemote is an OpenAI-compatible chat completions endpoint.
type fakeRemote struct {
	mu      sync.Mutex
	status  int
	answer  string
	prompts []string
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(req.Messages); n > 0 {
		f.prompts = append(f.prompts, req.Messages[n-1].Content)
	}
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": f.answer}}},
	})
}

func (f *fakeRemote) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeLlamaServer reports modelPath as loaded and streams a fixed completion
// in llama-server's SSE format.
func fakeLlamaServer(t *testing.T, text, modelPath string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/props" {
			_ = json.NewEncoder(w).Encode(map[string]any{"model_path": modelPath})
			return
		}
		if r.URL.Path != "/v1/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range strings.SplitAfter(text, " ") {
			b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": word}}})
			_, _ = io.WriteString(w, "data: "+string(b)+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newEnv builds the gateway from configuration exactly as `privgate serve`
// does and serves it over HTTP. withRemote enables the remote path.
func newEnv(t *testing.T, arts []artifact, withRemote bool) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		modelsDir: filepath.Join(root, "models"),
		regDir:    filepath.Join(root, "registry"),
		srcDir:    filepath.Join(root, "src"),
		remote:    &fakeRemote{answer: "Under Art. 1218 c.c. the debtor is liable for non-performance."},
	}
	require.NoError(t, os.MkdirAll(e.modelsDir, 0o755))
	writeSignedRegistry(t, e.regDir, e.srcDir, arts)

	remoteSrv := httptest.NewServer(e.remote)
	t.Cleanup(remoteSrv.Close)
	llama := fakeLlamaServer(t, "The debtor answers for damages under Art. 1218 of the Civil Code.",
		filepath.Join(e.modelsDir, goodModel.file))

	cfg := config.Defaults()
	cfg.APIKey = apiKey
	cfg.ModelsDir = e.modelsDir
	cfg.RegistryDir = e.regDir
	cfg.IntegritySource = "registry"
	cfg.AuditLedger = filepath.Join(root, "audit", "ledger.jsonl")
	cfg.LlamaServerURL = llama.URL
	cfg.RemoteBaseURL = remoteSrv.URL
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000
	if withRemote {
		cfg.RemoteAPIKey = "sk-test"
	}
	require.NoError(t, cfg.Normalize())
	require.NoError(t, cfg.Validate())
	e.cfg = cfg

	gw, err := gateway.Build(cfg, "e2e", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	e.gw = gw

	e.srv = httptest.NewServer(httpapi.NewMux(gw, httpapi.Options{
		APIKey:       cfg.APIKey,
		MaxBodyBytes: cfg.MaxRequestSize,
		Limiter:      gw.Limiter(),
		Logger:       zerolog.Nop(),
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), "body=%s", string(b))
	return v
}
