package inference

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLlamaServerAdapter_Stream(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/props" {
			_, _ = w.Write([]byte(`{"model_path":"/models/phi.gguf","n_ctx":4096}`))
			return
		}
		if r.URL.Path != "/v1/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range []string{
			`data: {"choices":[{"text":"Hello"}]}`,
			``,
			`: keepalive`,
			`data: {"choices":[{"text":" World","finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
			`data: [DONE]`,
		} {
			_, _ = w.Write([]byte(l + "\n"))
		}
	}))
	defer srv.Close()

	a := NewLlamaServerAdapter(srv.URL+"/", time.Second, 0, zerolog.Nop())
	s, err := a.Start("/models/phi.gguf", InferParams{MaxTokens: 16})
	if err != nil {
		t.Fatal(err)
	}
	var toks []string
	res, err := s.Generate(testCtx(t), "prompt", func(tok string) error { toks = append(toks, tok); return nil })
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Content != "Hello World" || res.FinishReason != "stop" || res.Usage.TotalTokens != 5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if strings.Join(toks, "|") != "Hello| World" {
		t.Fatalf("tokens: %v", toks)
	}
	if got.Model != "phi.gguf" || !got.Stream || got.MaxTokens != 16 {
		t.Fatalf("request payload: %+v", got)
	}
}

func TestLlamaServerAdapter_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/props" {
			_, _ = w.Write([]byte(`{"model_path":"/m.gguf"}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	a := NewLlamaServerAdapter(srv.URL, time.Second, 0, zerolog.Nop())
	s, err := a.Start("/m.gguf", InferParams{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Generate(testCtx(t), "p", func(string) error { return nil }); err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected http error, got %v", err)
	}
	srv.Close()
	if _, err := s.Generate(testCtx(t), "p", func(string) error { return nil }); !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable for closed server, got %v", err)
	}
	if _, err := a.Start(" ", InferParams{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLlamaServerAdapter_RefusesOtherLoadedModel(t *testing.T) {
	cases := map[string]struct {
		props  string
		models string
		ok     bool
	}{
		"props same path":           {props: `{"model_path":"/models/phi.gguf"}`, ok: true},
		"props other model":         {props: `{"model_path":"/opt/other/mistral.gguf"}`},
		"props same name elsewhere": {props: `{"model_path":"/tmp/phi.gguf"}`},
		"models list by name":       {models: `{"data":[{"id":"phi.gguf"}]}`, ok: true},
		"models list other":         {models: `{"data":[{"id":"mistral.gguf"}]}`},
		"nothing reported":          {},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			completions := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case r.URL.Path == "/props" && tc.props != "":
					_, _ = w.Write([]byte(tc.props))
				case r.URL.Path == "/v1/models" && tc.models != "":
					_, _ = w.Write([]byte(tc.models))
				case r.URL.Path == "/v1/completions":
					completions++
					http.Error(w, "unexpected", http.StatusTeapot)
				default:
					http.NotFound(w, r)
				}
			}))
			defer srv.Close()

			a := NewLlamaServerAdapter(srv.URL, time.Second, 0, zerolog.Nop())
			s, err := a.Start("/models/phi.gguf", InferParams{})
			if tc.ok {
				if err != nil || s == nil {
					t.Fatalf("Start: %v", err)
				}
				return
			}
			if !IsDependencyUnavailable(err) {
				t.Fatalf("expected dependency unavailable, got %v", err)
			}
			if completions != 0 {
				t.Fatalf("completions called %d times", completions)
			}
		})
	}
}

func TestLlamaServerAdapter_StartUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	a := NewLlamaServerAdapter(url, time.Second, 0, zerolog.Nop())
	if _, err := a.Start("/models/phi.gguf", InferParams{}); !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}
