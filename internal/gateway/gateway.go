// Package gateway owns the process-lifetime state of a privgate server and
// implements every operation the HTTP layer exposes.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"privgate/internal/activestate"
	"privgate/internal/audit"
	"privgate/internal/integrity"
	"privgate/internal/ratelimit"
	"privgate/internal/reasoning"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

// Options wires a Gateway. Engine, Router and Active are required.
type Options struct {
	Version   string
	ModelsDir string
	Engine    *integrity.Engine
	Router    *reasoning.Router
	Active    activestate.Store
	Ledger    *audit.Ledger
	Limiter   ratelimit.Limiter
	// Remote is reported in the health check when set.
	Remote *reasoning.RemoteClient
	// VerifyInterval enables periodic re-verification of the active model.
	VerifyInterval time.Duration
	Logger         zerolog.Logger
	Now            func() time.Time
	closers        []func() error
}

// Gateway is created once per process and shared by all handlers.
type Gateway struct {
	version   string
	modelsDir string
	started   time.Time
	now       func() time.Time

	engine   *integrity.Engine
	router   *reasoning.Router
	active   activestate.Store
	ledger   *audit.Ledger
	limiter  ratelimit.Limiter
	remote   *reasoning.RemoteClient
	interval time.Duration
	log      zerolog.Logger
	closers  []func() error
}

func New(opts Options) *Gateway {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		version:   opts.Version,
		modelsDir: opts.ModelsDir,
		started:   now(),
		now:       now,
		engine:    opts.Engine,
		router:    opts.Router,
		active:    opts.Active,
		ledger:    opts.Ledger,
		limiter:   opts.Limiter,
		remote:    opts.Remote,
		interval:  opts.VerifyInterval,
		log:       opts.Logger,
		closers:   opts.closers,
	}
}

func (g *Gateway) Version() string { return g.version }
func (g *Gateway) Mode() string { return g.router.Mode() }
func (g *Gateway) Limiter() ratelimit.Limiter { return g.limiter }
func (g *Gateway) Engine() *integrity.Engine { return g.engine }
func (g *Gateway) Uptime() time.Duration { return g.now().Sub(g.started) }
func (g *Gateway) ActiveStore() activestate.Store { return g.active }

// Query turns free text into a sanitized reasoning request. Nothing is
// routed; the caller decides where to send it.
func (g *Gateway) Query(q types.QueryRequest) (types.ReasoningRequest, error) {
	return validate.PrepareQuery(q)
}

// Reason routes a reasoning request on the configured path.
func (g *Gateway) Reason(ctx context.Context, in types.ReasoningRequest) (types.ReasoningResponse, error) {
	req, err := validate.PrepareReasoning(in)
	if err != nil {
		return types.ReasoningResponse{}, err
	}
	return g.router.Reason(ctx, req)
}

// ReasonLocal always uses the verified local model.
func (g *Gateway) ReasonLocal(ctx context.Context, in types.ReasoningRequest) (types.ReasoningResponse, error) {
	req, err := validate.PrepareReasoning(in)
	if err != nil {
		return types.ReasoningResponse{}, err
	}
	return g.router.ReasonLocal(ctx, req)
}

// Verify checks a reasoning response for well-formedness.
func (g *Gateway) Verify(r types.ReasoningResponse) types.VerifyResponse {
	ok, reason := validate.CheckResponse(r)
	return types.VerifyResponse{Valid: ok, Reason: reason}
}

// Close releases runtime resources. It is safe to call once.
func (g *Gateway) Close() error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
