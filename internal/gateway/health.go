package gateway

import (
	"context"
	"fmt"
	"os"
	"time"

	"privgate/internal/registry"
	"privgate/pkg/types"
)

// Check statuses, worst last.
const (
	StatusHealthy   = "healthy"
	StatusDisabled  = "disabled"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health reports liveness details. It never fails; problems show up as
// check statuses.
func (g *Gateway) Health(ctx context.Context) types.HealthResponse {
	checks := map[string]types.CheckResult{
		"storage":  timed(g.checkStorage),
		"registry": timed(func() (string, string) { return g.checkRegistry(ctx) }),
		"remote":   timed(g.checkRemote),
		"local":    timed(func() (string, string) { return g.checkLocal(ctx) }),
	}
	status := StatusHealthy
	for _, c := range checks {
		if rank(c.Status) > rank(status) {
			status = c.Status
		}
	}
	return types.HealthResponse{
		Status:        status,
		Timestamp:     g.now().UTC().Format(time.RFC3339),
		Version:       g.version,
		UptimeSeconds: int64(g.Uptime().Seconds()),
		Mode:          g.Mode(),
		Checks:        checks,
	}
}

// Ready reports whether the gateway can serve verification and reasoning:
// the models directory is usable and the truth source verifies.
func (g *Gateway) Ready(ctx context.Context) bool {
	s, _ := g.checkStorage()
	r, _ := g.checkRegistry(ctx)
	return s == StatusHealthy && r == StatusHealthy
}

func rank(status string) int {
	switch status {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

func timed(f func() (string, string)) types.CheckResult {
	start := time.Now()
	status, msg := f()
	return types.CheckResult{Status: status, Message: msg, ResponseTimeMS: time.Since(start).Milliseconds()}
}

func (g *Gateway) checkStorage() (string, string) {
	fi, err := os.Stat(g.modelsDir)
	switch {
	case os.IsNotExist(err):
		return StatusDegraded, "Models directory does not exist yet"
	case err != nil:
		return StatusUnhealthy, "Models directory not accessible"
	case !fi.IsDir():
		return StatusUnhealthy, "Models path is not a directory"
	}
	return StatusHealthy, "Storage accessible"
}

func (g *Gateway) checkRegistry(ctx context.Context) (string, string) {
	src := g.engine.Source()
	entries, version, err := src.Catalog(ctx)
	if err != nil {
		return StatusUnhealthy, fmt.Sprintf("Trust registry unavailable (%s)", registry.KindOf(err))
	}
	if src.Name() == "inline" {
		return StatusHealthy, fmt.Sprintf("Inline integrity table, %d models", len(entries))
	}
	return StatusHealthy, fmt.Sprintf("Registry verified, %d models, cid %s", len(entries), version)
}

func (g *Gateway) checkRemote() (string, string) {
	if g.remote == nil {
		return StatusDisabled, "Remote provider not configured"
	}
	if st := g.remote.BreakerState(); st != "closed" {
		return StatusDegraded, "Remote provider circuit " + st
	}
	return StatusHealthy, "Remote provider configured"
}

func (g *Gateway) checkLocal(ctx context.Context) (string, string) {
	path, ok, err := g.active.Get(ctx)
	switch {
	case err != nil:
		return StatusUnhealthy, "Active model state unreadable"
	case !ok:
		if g.remote == nil {
			return StatusDegraded, "No active local model"
		}
		return StatusDisabled, "No active local model"
	case !g.engine.IsVerified(path):
		if g.remote == nil {
			return StatusDegraded, "Active local model not verified"
		}
		return StatusDisabled, "Active local model not verified"
	}
	return StatusHealthy, "Active local model verified"
}
