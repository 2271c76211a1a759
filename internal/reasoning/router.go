// Package reasoning routes sanitized requests to the remote provider or to
// the verified local model and normalizes what comes back.
package reasoning

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"privgate/internal/activestate"
	"privgate/internal/inference"
	"privgate/pkg/types"
)

// Path names, also reported as the gateway mode.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "privgate",
		Subsystem: "reasoning",
		Name:      "requests_total",
		Help:      "Reasoning requests by path and result",
	},
	[]string{"path", "result"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Remote answers a reasoning request through an external provider.
type Remote interface {
	Complete(ctx context.Context, req types.ReasoningRequest) (string, error)
}

// Generator runs a prompt against a local artifact.
type Generator interface {
	Generate(ctx context.Context, modelPath, prompt string) (inference.FinalResult, error)
}

// Verifier reports whether an artifact passed verification since its last
// replacement. CheckTrust re-resolves the artifact against the current
// trust source and drops the verification when trust is gone.
type Verifier interface {
	CheckTrust(ctx context.Context, path string) error
	IsVerified(path string) bool
}

type Config struct {
	// Remote is nil when no provider credentials are configured; the router
	// then runs in local mode.
	Remote   Remote
	Active   activestate.Store
	Verifier Verifier
	Local    Generator
	Logger   zerolog.Logger
}

type Router struct {
	remote   Remote
	active   activestate.Store
	verifier Verifier
	local    Generator
	log      zerolog.Logger
}

func NewRouter(cfg Config) *Router {
	return &Router{
		remote:   cfg.Remote,
		active:   cfg.Active,
		verifier: cfg.Verifier,
		local:    cfg.Local,
		log:      cfg.Logger,
	}
}

// Mode returns the path used by Reason.
func (r *Router) Mode() string {
	if r.remote != nil {
		return ModeRemote
	}
	return ModeLocal
}

// Reason dispatches to the configured path.
func (r *Router) Reason(ctx context.Context, req types.ReasoningRequest) (types.ReasoningResponse, error) {
	if r.remote != nil {
		return r.ReasonRemote(ctx, req)
	}
	return r.ReasonLocal(ctx, req)
}

// ReasonRemote calls the provider. A provider failure yields a degraded
// response naming only the failure class, together with an *UpstreamError.
func (r *Router) ReasonRemote(ctx context.Context, req types.ReasoningRequest) (types.ReasoningResponse, error) {
	ctx, span := otel.Tracer("privgate/reasoning").Start(ctx, "reasoning.remote")
	defer span.End()
	start := time.Now()
	if r.remote == nil {
		err := upstream(ClassUnavailable, errors.New("remote provider not configured"))
		requestsTotal.WithLabelValues(ModeRemote, err.Class).Inc()
		return degraded(err.Class), err
	}
	text, err := r.remote.Complete(ctx, req)
	if err != nil {
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			ue = upstream(ClassError, err)
		}
		span.SetAttributes(attribute.String("error.class", ue.Class))
		requestsTotal.WithLabelValues(ModeRemote, ue.Class).Inc()
		r.log.Warn().Str("class", ue.Class).Err(ue.Cause).Dur("dur", time.Since(start)).Msg("remote reasoning failed")
		return degraded(ue.Class), ue
	}
	requestsTotal.WithLabelValues(ModeRemote, "ok").Inc()
	r.log.Debug().Dur("dur", time.Since(start)).Msg("remote reasoning")
	return answer(text, req), nil
}

// ReasonLocal runs the request on the active artifact, which must be verified.
func (r *Router) ReasonLocal(ctx context.Context, req types.ReasoningRequest) (types.ReasoningResponse, error) {
	ctx, span := otel.Tracer("privgate/reasoning").Start(ctx, "reasoning.local")
	defer span.End()
	if r.active == nil {
		requestsTotal.WithLabelValues(ModeLocal, "no_active_model").Inc()
		return types.ReasoningResponse{}, ErrNoActiveModel
	}
	path, ok, err := r.active.Get(ctx)
	if err != nil {
		requestsTotal.WithLabelValues(ModeLocal, "state_error").Inc()
		return types.ReasoningResponse{}, err
	}
	if !ok {
		requestsTotal.WithLabelValues(ModeLocal, "no_active_model").Inc()
		return types.ReasoningResponse{}, ErrNoActiveModel
	}
	if r.verifier == nil {
		requestsTotal.WithLabelValues(ModeLocal, "not_verified").Inc()
		return types.ReasoningResponse{}, ErrModelNotVerified
	}
	if err := r.verifier.CheckTrust(ctx, path); err != nil {
		requestsTotal.WithLabelValues(ModeLocal, "untrusted").Inc()
		r.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("local model no longer trusted")
		return types.ReasoningResponse{}, err
	}
	if !r.verifier.IsVerified(path) {
		requestsTotal.WithLabelValues(ModeLocal, "not_verified").Inc()
		return types.ReasoningResponse{}, ErrModelNotVerified
	}
	if r.local == nil {
		requestsTotal.WithLabelValues(ModeLocal, "unavailable").Inc()
		return types.ReasoningResponse{}, inference.ErrDependencyUnavailable("no local inference runtime configured")
	}
	res, err := r.local.Generate(ctx, path, LocalPrompt(req))
	if err != nil {
		requestsTotal.WithLabelValues(ModeLocal, "error").Inc()
		return types.ReasoningResponse{}, err
	}
	requestsTotal.WithLabelValues(ModeLocal, "ok").Inc()
	return answer(res.Content, req), nil
}

// LocalPrompt renders a request as a single completion prompt.
func LocalPrompt(req types.ReasoningRequest) string {
	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\n")
	if len(req.Context) > 0 {
		b.WriteString("Context:\n")
		for _, c := range req.Context {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Request: ")
	b.WriteString(req.Prompt)
	b.WriteString("\nAnswer:")
	return b.String()
}

func degraded(class string) types.ReasoningResponse {
	return types.ReasoningResponse{
		Summary:   degradedSummary(class),
		Citations: []string{},
		ErrorKind: class,
	}
}
