package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// llamaServerAdapter implements InferenceAdapter by talking to a running
// llama.cpp server over its OpenAI-compatible completions endpoint. Start
// refuses the session unless the server reports the verified artifact as
// its loaded model.
type llamaServerAdapter struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewLlamaServerAdapter constructs a server-backed adapter.
func NewLlamaServerAdapter(baseURL string, reqTimeout, connectTimeout time.Duration, log zerolog.Logger) InferenceAdapter {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Deadlines come from the request context; see Generate.
	return &llamaServerAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		reqTimeout: reqTimeout,
		httpClient: &http.Client{Transport: tr},
		log:        log,
	}
}

type llamaServerSession struct {
	adapter    *llamaServerAdapter
	modelID    string
	baseParams InferParams
}

const loadedModelTimeout = 10 * time.Second

func (a *llamaServerAdapter) Start(modelPath string, params InferParams) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadedModelTimeout)
	defer cancel()
	loaded, err := a.loadedModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range loaded {
		if sameArtifact(m, modelPath) {
			return &llamaServerSession{adapter: a, modelID: filepath.Base(modelPath), baseParams: params}, nil
		}
	}
	a.log.Warn().Str("adapter", "llama_server").Str("want", filepath.Base(modelPath)).Strs("loaded", baseNames(loaded)).
		Msg("llama server does not serve the verified model")
	return nil, ErrDependencyUnavailable("llama server has not loaded the verified model")
}

// loadedModels asks the server what it serves: model_path from /props,
// falling back to the ids listed by /v1/models.
func (a *llamaServerAdapter) loadedModels(ctx context.Context) ([]string, error) {
	var props struct {
		ModelPath string `json:"model_path"`
	}
	ok, err := a.getJSON(ctx, "/props", &props)
	if err != nil {
		return nil, err
	}
	if ok && props.ModelPath != "" {
		return []string{props.ModelPath}, nil
	}
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if _, err := a.getJSON(ctx, "/v1/models", &list); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list.Data))
	for _, d := range list.Data {
		out = append(out, d.ID)
	}
	return out, nil
}

// getJSON decodes a successful response into v. A non-2xx status returns
// ok=false; only an unreachable server is an error.
func (a *llamaServerAdapter) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, ErrDependencyUnavailable("llama server unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v); err != nil {
		return false, nil
	}
	return true, nil
}

// sameArtifact compares a model reported by the server with the verified
// path. An absolute report must be the same file; a bare name must match
// the file name.
func sameArtifact(reported, verified string) bool {
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return false
	}
	if filepath.IsAbs(reported) {
		if abs, err := filepath.Abs(verified); err == nil {
			verified = abs
		}
		return filepath.Clean(reported) == verified
	}
	return filepath.Base(reported) == filepath.Base(verified)
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

type completionRequest struct {
	Model         string   `json:"model,omitempty"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float32  `json:"temperature,omitempty"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          int      `json:"seed,omitempty"`
	Stream        bool     `json:"stream"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
}

type streamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (s *llamaServerSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	a := s.adapter
	if a.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.reqTimeout)
		defer cancel()
	}
	p := s.baseParams
	body, _ := json.Marshal(completionRequest{
		Model:         s.modelID,
		Prompt:        prompt,
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		TopK:          p.TopK,
		Stop:          p.Stop,
		Seed:          p.Seed,
		Stream:        true,
		RepeatPenalty: p.RepeatPenalty,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, ErrDependencyUnavailable("llama server unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return FinalResult{}, fmt.Errorf("llama server http error: %s", resp.Status)
	}

	var final FinalResult
	var sb strings.Builder
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if data, ok := sseData(line); ok {
			if data == "[DONE]" {
				break
			}
			var chunk streamChunk
			if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
				a.log.Debug().Str("adapter", "llama_server").Msg("unparseable stream line")
			} else {
				for _, c := range chunk.Choices {
					frag := c.Text
					if frag == "" {
						frag = c.Delta.Content
					}
					if frag != "" {
						sb.WriteString(frag)
						if cbErr := onToken(frag); cbErr != nil {
							final.Content = sb.String()
							return final, cbErr
						}
					}
					if c.FinishReason != "" {
						final.FinishReason = c.FinishReason
					}
				}
				if chunk.Usage != nil {
					final.Usage = Usage{
						PromptTokens:     chunk.Usage.PromptTokens,
						CompletionTokens: chunk.Usage.CompletionTokens,
						TotalTokens:      chunk.Usage.TotalTokens,
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			a.log.Warn().Err(err).Str("adapter", "llama_server").Msg("stream read error")
			return final, err
		}
	}
	final.Content = sb.String()
	return final, nil
}

func (s *llamaServerSession) Close() error { return nil }

// sseData extracts the payload of a "data:" line. Blank lines and other SSE
// fields are skipped.
func sseData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 5 || !strings.EqualFold(line[:5], "data:") {
		return "", false
	}
	return strings.TrimSpace(line[5:]), true
}
