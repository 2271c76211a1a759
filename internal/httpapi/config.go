package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"privgate/internal/ratelimit"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options configures the HTTP surface. Zero values are usable except for
// APIKey: with no key every authenticated route answers 401.
type Options struct {
	APIKey       string
	MaxBodyBytes int64
	Limiter      ratelimit.Limiter

	EnableCompression  bool
	EnableCORS         bool
	CORSAllowedOrigins []string

	Logger zerolog.Logger
	// LogLevel is the default per-request log level: off, error, info, debug.
	LogLevel string
	// BaseContext is canceled on shutdown; handlers stop work when it is.
	BaseContext context.Context
	// RequestTimeout bounds reasoning calls. Zero means no extra bound.
	RequestTimeout time.Duration
	// Tracing wraps the router with OpenTelemetry HTTP instrumentation.
	Tracing bool
}

func (o Options) maxBody() int64 {
	if o.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return o.MaxBodyBytes
}

func (o Options) baseContext() context.Context {
	if o.BaseContext == nil {
		return context.Background()
	}
	return o.BaseContext
}
