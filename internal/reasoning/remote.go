package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"privgate/pkg/types"
)

// SystemPrompt is sent with every remote and local request.
const SystemPrompt = "You are a legal reasoning assistant. You must never include private or identifying data in your answers."

// RemoteConfig configures the OpenAI-compatible provider client.
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Breaker trips after this many consecutive failures. Zero uses 5.
	MaxFailures uint32
	// OpenFor is how long the breaker stays open. Zero uses 30s.
	OpenFor time.Duration
}

// RemoteClient calls POST {base}/chat/completions behind a circuit breaker.
type RemoteClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewRemoteClient(cfg RemoteConfig) *RemoteClient {
	maxFail := cfg.MaxFailures
	if maxFail == 0 {
		maxFail = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	c := &RemoteClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		http:    hc,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-reasoning",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFail
		},
		// Caller-side rejections say nothing about provider health.
		IsSuccessful: func(err error) bool {
			var ue *UpstreamError
			if errors.As(err, &ue) {
				return ue.Class == ClassRejected || ue.Class == ClassRateLimited
			}
			return err == nil
		},
	})
	return c
}

// BreakerState returns the circuit breaker state name (closed, half-open, open).
func (c *RemoteClient) BreakerState() string { return c.cb.State().String() }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete returns the provider's answer text or an *UpstreamError.
func (c *RemoteClient) Complete(ctx context.Context, req types.ReasoningRequest) (string, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", upstream(ClassUnavailable, err)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *RemoteClient) do(ctx context.Context, req types.ReasoningRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	msgs := []chatMessage{{Role: "system", Content: SystemPrompt}}
	if len(req.Context) > 0 {
		msgs = append(msgs, chatMessage{Role: "user", Content: "Context:\n" + strings.Join(req.Context, "\n\n")})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})
	body, _ := json.Marshal(chatRequest{Model: c.model, Messages: msgs})

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", upstream(ClassError, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(hreq)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	if class := classifyStatus(resp.StatusCode); class != "" {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", upstream(class, fmt.Errorf("status %d", resp.StatusCode))
	}
	var cr chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&cr); err != nil {
		if ctx.Err() != nil {
			return "", upstream(ClassTimeout, ctx.Err())
		}
		return "", upstream(ClassError, err)
	}
	if len(cr.Choices) == 0 {
		return "", upstream(ClassError, errors.New("no choices"))
	}
	return cr.Choices[0].Message.Content, nil
}

func classifyStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return ""
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ClassTimeout
	case code == http.StatusServiceUnavailable || code == http.StatusBadGateway:
		return ClassUnavailable
	case code >= 400 && code < 500:
		return ClassRejected
	default:
		return ClassError
	}
}

func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return upstream(ClassTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return upstream(ClassTimeout, err)
	}
	return upstream(ClassUnavailable, err)
}
