package validate

import (
	"errors"
	"fmt"
)

// ValidationError names the offending field. It always maps to a 4xx.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StatusCode implements the HTTP error interface used by the API layer.
func (e *ValidationError) StatusCode() int {
	if e.Message == msgTooLarge {
		return 413
	}
	return 400
}

// Kind is the machine-readable error kind.
func (e *ValidationError) Kind() string { return "validation_error" }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

const msgTooLarge = "request body too large"

// ErrBodyTooLarge is returned by decoders when the body exceeds the limit.
var ErrBodyTooLarge = &ValidationError{Field: "body", Message: msgTooLarge}
