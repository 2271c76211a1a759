package inference

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 30 * time.Second
)

var generationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "privgate",
		Subsystem: "local",
		Name:      "generations_total",
		Help:      "Local generations by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(generationsTotal)
}

// RunnerConfig encapsulates all tunables for Runner construction.
type RunnerConfig struct {
	Adapter       InferenceAdapter
	Params        InferParams
	MaxQueueDepth int
	MaxWait       time.Duration
	Logger        zerolog.Logger
}

// Runner serializes generations against one loaded artifact at a time.
// Switching artifacts closes the previous session.
type Runner struct {
	adapter InferenceAdapter
	params  InferParams
	adm     *admission
	log     zerolog.Logger

	mu      sync.Mutex
	path    string
	session InferSession
}

func NewRunner(cfg RunnerConfig) *Runner {
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	wait := cfg.MaxWait
	if wait <= 0 {
		wait = defaultMaxWait
	}
	return &Runner{
		adapter: cfg.Adapter,
		params:  cfg.Params,
		adm:     newAdmission(depth, wait),
		log:     cfg.Logger,
	}
}

// Generate runs prompt against the artifact at modelPath. It returns
// ErrTooBusy when the admission queue is full or the wait expires.
func (r *Runner) Generate(ctx context.Context, modelPath, prompt string) (FinalResult, error) {
	if r.adapter == nil {
		return FinalResult{}, ErrDependencyUnavailable("no local inference runtime configured")
	}
	release, err := r.adm.begin(ctx)
	if err != nil {
		if IsTooBusy(err) {
			generationsTotal.WithLabelValues("busy").Inc()
		}
		return FinalResult{}, err
	}
	defer release()

	sess, err := r.sessionFor(modelPath)
	if err != nil {
		generationsTotal.WithLabelValues("start_error").Inc()
		return FinalResult{}, err
	}
	start := time.Now()
	res, err := sess.Generate(ctx, prompt, func(string) error { return nil })
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			// A failed session may hold a broken runtime; start fresh next time.
			r.reset()
		}
		return FinalResult{}, err
	}
	generationsTotal.WithLabelValues("ok").Inc()
	r.log.Debug().
		Int("completion_tokens", res.Usage.CompletionTokens).
		Dur("dur", time.Since(start)).
		Msg("local generation")
	return res, nil
}

// sessionFor is called with the generation slot held.
func (r *Runner) sessionFor(path string) (InferSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil && r.path == path {
		return r.session, nil
	}
	if r.session != nil {
		_ = r.session.Close()
		r.session, r.path = nil, ""
	}
	s, err := r.adapter.Start(path, r.params)
	if err != nil {
		return nil, err
	}
	r.session, r.path = s, path
	return s, nil
}

func (r *Runner) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		_ = r.session.Close()
	}
	r.session, r.path = nil, ""
}

// Close releases the loaded session.
func (r *Runner) Close() error {
	r.reset()
	return nil
}
