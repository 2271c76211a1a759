package gateway

import (
	"context"
	"path/filepath"
	"time"
)

// Run re-verifies the active model every VerifyInterval until ctx is done.
// With no interval configured it returns immediately.
func (g *Gateway) Run(ctx context.Context) {
	if g.interval <= 0 {
		return
	}
	t := time.NewTicker(g.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.reverifyActive(ctx)
		}
	}
}

func (g *Gateway) reverifyActive(ctx context.Context) {
	path, ok, err := g.active.Get(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("periodic verify: read active model")
		return
	}
	if !ok {
		return
	}
	out, err := g.engine.VerifyArtifact(ctx, path)
	if err != nil {
		g.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("periodic verify refused")
		return
	}
	g.log.Debug().Str("file", filepath.Base(path)).Str("outcome", string(out.Status)).Msg("periodic verify")
}
