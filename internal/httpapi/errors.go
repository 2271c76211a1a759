package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"privgate/internal/inference"
	"privgate/internal/registry"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

type kinded interface {
	Kind() string
}

// classify maps a service error to status, kind, field and a client-safe
// message. Unknown errors become a generic 500 so internal details such as
// file paths never leave the process.
func classify(err error) (int, string, string, string) {
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		return ve.StatusCode(), ve.Kind(), ve.Field, ve.Message
	}
	switch {
	case registry.IsMarkedUntrusted(err):
		return http.StatusForbidden, string(registry.KindMarkedUntrusted), "", "model is marked untrusted in the trust registry"
	case registry.IsNotListed(err):
		return http.StatusNotFound, string(registry.KindNotListed), "", "model is not listed in the trust registry"
	case registry.IsUnavailable(err):
		return http.StatusServiceUnavailable, "registry_unavailable", "", "trust registry unavailable"
	case inference.IsTooBusy(err):
		return http.StatusTooManyRequests, "too_busy", "", err.Error()
	case inference.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, "dependency_unavailable", "", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "", "request timed out"
	}
	var he HTTPError
	if errors.As(err, &he) {
		kind := "error"
		if k, ok := he.(kinded); ok {
			kind = k.Kind()
		}
		return he.StatusCode(), kind, "", he.Error()
	}
	return http.StatusInternalServerError, "internal_error", "", "internal error"
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, kind, field, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Kind: kind, Field: field, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
