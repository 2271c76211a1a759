package registry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func digestHex(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

const sampleRegistry = `{
  "format_version": 1,
  "issued_at": "2025-01-01T00:00:00Z",
  "entries": [
    {"id": "mistral-7b-instruct-v0.2.Q4_K_M", "display_name": "Mistral 7B Instruct", "source_uri": "https://example.invalid/mistral.gguf", "sha256": "%s", "trusted": true},
    {"id": "phi-3-mini-4k-instruct-q4", "display_name": "Phi-3 Mini", "source_uri": "https://example.invalid/phi3.gguf", "expected_digest": "%s", "trusted": false}
  ]
}`

// writeSigned writes registry bytes, a signature from s and the matching
// public key into a fresh directory.
func writeSigned(t *testing.T, s Signer, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	sig, err := s.Sign(data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	mustWrite(t, filepath.Join(dir, RegistryFile), data)
	mustWrite(t, filepath.Join(dir, SignatureFile), sig)
	mustWrite(t, filepath.Join(dir, PublicKeyFile), []byte(s.PublicKeyText()))
	return dir
}

func mustWrite(t *testing.T, p string, b []byte) {
	t.Helper()
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func mustSigner(t *testing.T, alg string) Signer {
	t.Helper()
	s, err := GenerateSigner(alg, rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigner(%s): %v", alg, err)
	}
	return s
}
