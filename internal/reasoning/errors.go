package reasoning

import (
	"errors"
	"fmt"
)

// Upstream error classes. The class is the only part of a remote failure
// that reaches the caller.
const (
	ClassTimeout     = "upstream_timeout"
	ClassUnavailable = "upstream_unavailable"
	ClassRejected    = "upstream_rejected"
	ClassRateLimited = "upstream_rate_limited"
	ClassError       = "upstream_error"
)

// UpstreamError is a classified remote provider failure. Cause stays
// server-side for logs.
type UpstreamError struct {
	Class string
	Cause error
}

func (e *UpstreamError) Error() string { return "remote provider failure: " + e.Class }
func (e *UpstreamError) Unwrap() error { return e.Cause }
func (e *UpstreamError) StatusCode() int { return 502 }
func (e *UpstreamError) Kind() string    { return e.Class }

// localError is a caller error on the local path.
type localError struct {
	kind string
	msg  string
}

func (e *localError) Error() string   { return e.msg }
func (e *localError) StatusCode() int { return 400 }
func (e *localError) Kind() string    { return e.kind }

var (
	// ErrNoActiveModel means no local artifact is selected.
	ErrNoActiveModel error = &localError{kind: "no_active_model", msg: "no active local model is set"}
	// ErrModelNotVerified means the active artifact has not passed
	// verification since it was last replaced.
	ErrModelNotVerified error = &localError{kind: "model_not_verified", msg: "active local model is not verified"}
)

func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func upstream(class string, cause error) *UpstreamError {
	return &UpstreamError{Class: class, Cause: cause}
}

func degradedSummary(class string) string {
	return fmt.Sprintf("Remote reasoning is unavailable (%s). No answer was produced; retry later or use the local model.", class)
}
