package registry

import "errors"

// Kind is a stable category for trust failures. Callers branch on Kind, not
// on message text.
type Kind string

const (
	KindMissing          Kind = "missing"
	KindSignatureInvalid Kind = "signature_invalid"
	KindStale            Kind = "stale"
	KindMalformed        Kind = "malformed"
	KindNotListed        Kind = "not_listed"
	KindMarkedUntrusted  Kind = "marked_untrusted"
)

// TrustError is returned by every registry operation that refuses trust.
type TrustError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *TrustError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *TrustError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *TrustError of the same Kind, so the sentinels below work
// with errors.Is.
func (e *TrustError) Is(target error) bool {
	t, ok := target.(*TrustError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrMissing          = &TrustError{Kind: KindMissing, Message: "trust registry missing"}
	ErrSignatureInvalid = &TrustError{Kind: KindSignatureInvalid, Message: "trust registry signature invalid"}
	ErrStale            = &TrustError{Kind: KindStale, Message: "trust registry signature too old"}
	ErrMalformed        = &TrustError{Kind: KindMalformed, Message: "trust registry malformed"}
	ErrNotListed        = &TrustError{Kind: KindNotListed, Message: "model not listed in trust registry"}
	ErrMarkedUntrusted  = &TrustError{Kind: KindMarkedUntrusted, Message: "model marked untrusted"}
)

func newError(kind Kind, msg string, cause error) error {
	return &TrustError{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the trust Kind of err, or "" if err is not a *TrustError.
func KindOf(err error) Kind {
	var te *TrustError
	if !errors.As(err, &te) {
		return ""
	}
	return te.Kind
}

// IsUnavailable reports whether err means the registry as a whole cannot be
// trusted. A registry with a bad signature is reported exactly like a
// missing one.
func IsUnavailable(err error) bool {
	switch KindOf(err) {
	case KindMissing, KindSignatureInvalid, KindStale, KindMalformed:
		return true
	}
	return false
}

// IsNotListed reports whether err means the model is absent from the registry.
func IsNotListed(err error) bool { return errors.Is(err, ErrNotListed) }

// IsMarkedUntrusted reports whether err means the model is listed but untrusted.
func IsMarkedUntrusted(err error) bool { return errors.Is(err, ErrMarkedUntrusted) }
