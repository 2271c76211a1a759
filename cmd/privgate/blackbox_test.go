package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

const apiKey = "blackbox-key-0123456789"

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	bin := filepath.Join(t.TempDir(), "privgate")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Dir(thisFile)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return bin
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	dir  string
}

func startServer(t *testing.T, bin string) *serverProc {
	t.Helper()
	dir := t.TempDir()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port))
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"API_KEY="+apiKey,
		"OPENAI_API_KEY=",
		"INTEGRITY_SOURCE=inline",
		"MODELS_DIR="+filepath.Join(dir, "models"),
		"AUDIT_LEDGER="+filepath.Join(dir, "ledger.jsonl"),
		"STATE_BACKEND=file",
		"RATE_LIMIT_BACKEND=memory",
		"LOG_LEVEL=error",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base, dir: dir}
}

func call(t *testing.T, method, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != "" {
		body = bytes.NewBufferString(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	sp := startServer(t, buildBinary(t))

	resp, body := call(t, http.MethodGet, sp.base+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health %d %s", resp.StatusCode, string(body))
	}
	var health struct {
		Mode   string `json:"mode"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("/health json: %v", err)
	}
	if health.Mode != "local" {
		t.Fatalf("mode=%q", health.Mode)
	}

	resp, body = call(t, http.MethodGet, sp.base+"/models", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, string(body))
	}
	if !strings.Contains(string(body), "phi-3-mini-instruct-q4_k_m") {
		t.Fatalf("/models body=%s", string(body))
	}

	resp, body = call(t, http.MethodPost, sp.base+"/reason_local", `{"prompt":"Summarize contract X","context":[]}`)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "no_active_model") {
		t.Fatalf("/reason_local %d %s", resp.StatusCode, string(body))
	}

	resp, body = call(t, http.MethodPost, sp.base+"/store", `{"action":"note","payload":{"k":"v"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/store %d %s", resp.StatusCode, string(body))
	}
	resp, body = call(t, http.MethodGet, sp.base+"/audit/verify", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"valid":true`) {
		t.Fatalf("/audit/verify %d %s", resp.StatusCode, string(body))
	}

	unauth, err := http.Get(sp.base + "/models")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = unauth.Body.Close()
	if unauth.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /models %d", unauth.StatusCode)
	}
}

func TestBlackbox_GracefulShutdown(t *testing.T) {
	sp := startServer(t, buildBinary(t))
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("exit: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server did not exit after SIGTERM")
	}
}

func TestBlackbox_RefusesShortAPIKey(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "serve")
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "API_KEY=short")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure, output=%s", string(out))
	}
	if !strings.Contains(string(out), "API_KEY") {
		t.Fatalf("output=%s", string(out))
	}
}
