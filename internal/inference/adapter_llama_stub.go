//go:build !llama

package inference

import "context"

// LlamaBuilt reports whether this binary was compiled with in-process llama support.
const LlamaBuilt = false

const errLlamaNotBuilt = "llama support not built (missing 'llama' build tag)"

// llamaAdapter refuses to run without the 'llama' build tag so default
// builds stay CGO-free and never fake inference.
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

type llamaSession struct{}

func (a *llamaAdapter) Start(string, InferParams) (InferSession, error) {
	return nil, ErrDependencyUnavailable(errLlamaNotBuilt)
}

func (s *llamaSession) Generate(ctx context.Context, _ string, _ func(string) error) (FinalResult, error) {
	if err := ctx.Err(); err != nil {
		return FinalResult{}, err
	}
	return FinalResult{}, ErrDependencyUnavailable(errLlamaNotBuilt)
}

func (s *llamaSession) Close() error { return nil }
