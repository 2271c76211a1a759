package inference

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "local model busy" }

// StatusCode implements the HTTP error interface used by the API layer.
func (tooBusyError) StatusCode() int { return 429 }

// ErrTooBusy is returned when admission times out or the queue is full.
var ErrTooBusy error = tooBusyError{}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// dependencyUnavailableError signals a missing runtime (e.g. llama.cpp not
// built in, llama server unreachable) so the HTTP layer returns 503.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

func (dependencyUnavailableError) StatusCode() int { return 503 }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
