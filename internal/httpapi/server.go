// Package httpapi is the chi HTTP surface of the gateway.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"privgate/internal/integrity"
	"privgate/internal/reasoning"
	"privgate/internal/telemetry"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Health(ctx context.Context) types.HealthResponse
	Ready(ctx context.Context) bool
	Query(q types.QueryRequest) (types.ReasoningRequest, error)
	Reason(ctx context.Context, req types.ReasoningRequest) (types.ReasoningResponse, error)
	ReasonLocal(ctx context.Context, req types.ReasoningRequest) (types.ReasoningResponse, error)
	Verify(resp types.ReasoningResponse) types.VerifyResponse
	ListModels(ctx context.Context) (types.ModelsResponse, error)
	ActiveModel(ctx context.Context) (types.ActiveModelResponse, error)
	SetActiveModel(ctx context.Context, model string) (types.ActiveModelResponse, error)
	VerifyModel(ctx context.Context, model string) (types.VerificationResponse, error)
	Store(ctx context.Context, req types.StoreRequest) (types.StoreResponse, error)
	VerifyAudit(ctx context.Context) (types.AuditVerifyResponse, error)
}

type server struct {
	svc  Service
	opts Options
}

// NewMux builds the router. Middleware order: request id, real ip,
// recoverer, security headers, metrics, request logging, CORS, compression,
// rate limit, auth, body limit.
func NewMux(svc Service, opts Options) http.Handler {
	s := &server{svc: svc, opts: opts}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(MetricsMiddleware)
	r.Use(requestLogger(opts.Logger, parseLevel(opts.LogLevel)))
	if opts.EnableCORS {
		origins := opts.CORSAllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "X-Log-Level"},
			ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if opts.EnableCompression {
		r.Use(middleware.Compress(5, "application/json"))
	}
	r.Use(rateLimit(opts.Limiter))
	r.Use(bearerAuth(opts.APIKey))
	r.Use(bodyLimit(opts.maxBody()))

	r.Group(func(r chi.Router) {
		r.Use(inflight)
		r.Get("/health", s.health)
		r.Get("/readyz", s.readyz)
		r.Post("/query", s.query)
		r.Post("/reason", s.reason)
		r.Post("/reason_local", s.reasonLocal)
		r.Post("/verify", s.verify)
		r.Get("/models", s.listModels)
		r.Get("/models/active", s.activeModel)
		r.Put("/models/active", s.setActiveModel)
		r.Post("/models/verify", s.verifyModel)
		r.Post("/store", s.store)
		r.Get("/audit/verify", s.verifyAudit)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		MountSwagger(r)
	})

	if opts.Tracing {
		return telemetry.HTTPMiddleware("privgate")(r)
	}
	return r
}

// decodeJSON reads a JSON body into v. It writes the error response itself
// and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "validation_error", "", "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			e := validate.ErrBodyTooLarge
			writeJSONError(w, e.StatusCode(), e.Kind(), e.Field, e.Message)
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "validation_error", "body", "invalid JSON body")
		return false
	}
	return true
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, field, msg := classify(err)
	if status >= 500 {
		ev := s.opts.Logger.Error().Err(err).Str("kind", kind)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Msg("request failed")
	}
	if status == http.StatusTooManyRequests {
		incRejection(kind)
	}
	writeJSONError(w, status, kind, field, msg)
}

// writeReasoning writes a router result. Upstream failures still carry a
// well-formed response body.
func (s *server) writeReasoning(w http.ResponseWriter, r *http.Request, resp types.ReasoningResponse, err error) {
	if err != nil {
		var ue *reasoning.UpstreamError
		if errors.As(err, &ue) {
			writeJSON(w, ue.StatusCode(), resp)
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// health godoc
// @Summary  Liveness and dependency report
// @Tags     system
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Router   /health [get]
func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(r.Context()))
}

func (s *server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready(r.Context()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// query godoc
// @Summary  Sanitize free text into a reasoning request
// @Tags     reasoning
// @Accept   json
// @Produce  json
// @Param    body body types.QueryRequest true "Query"
// @Success  200 {object} types.ReasoningRequest
// @Failure  400 {object} types.ErrorResponse
// @Security BearerAuth
// @Router   /query [post]
func (s *server) query(w http.ResponseWriter, r *http.Request) {
	var q types.QueryRequest
	if !decodeJSON(w, r, &q) {
		return
	}
	req, err := s.svc.Query(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// reason godoc
// @Summary  Reason on the configured path
// @Tags     reasoning
// @Accept   json
// @Produce  json
// @Param    body body types.ReasoningRequest true "Reasoning request"
// @Success  200 {object} types.ReasoningResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  502 {object} types.ReasoningResponse
// @Security BearerAuth
// @Router   /reason [post]
func (s *server) reason(w http.ResponseWriter, r *http.Request) {
	var req types.ReasoningRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := s.workContext(r.Context())
	defer cancel()
	resp, err := s.svc.Reason(ctx, req)
	s.writeReasoning(w, r, resp, err)
}

// reasonLocal godoc
// @Summary  Reason with the active, verified local model
// @Tags     reasoning
// @Accept   json
// @Produce  json
// @Param    body body types.ReasoningRequest true "Reasoning request"
// @Success  200 {object} types.ReasoningResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Security BearerAuth
// @Router   /reason_local [post]
func (s *server) reasonLocal(w http.ResponseWriter, r *http.Request) {
	var req types.ReasoningRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := s.workContext(r.Context())
	defer cancel()
	resp, err := s.svc.ReasonLocal(ctx, req)
	s.writeReasoning(w, r, resp, err)
}

// verify godoc
// @Summary  Check a reasoning response for well-formedness
// @Tags     reasoning
// @Accept   json
// @Produce  json
// @Param    body body types.ReasoningResponse true "Response to check"
// @Success  200 {object} types.VerifyResponse
// @Security BearerAuth
// @Router   /verify [post]
func (s *server) verify(w http.ResponseWriter, r *http.Request) {
	var resp types.ReasoningResponse
	if !decodeJSON(w, r, &resp) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Verify(resp))
}

// listModels godoc
// @Summary  List models from the trust registry
// @Tags     models
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Failure  503 {object} types.ErrorResponse
// @Security BearerAuth
// @Router   /models [get]
func (s *server) listModels(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.ListModels(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// activeModel godoc
// @Summary  Show the active local model
// @Tags     models
// @Produce  json
// @Success  200 {object} types.ActiveModelResponse
// @Security BearerAuth
// @Router   /models/active [get]
func (s *server) activeModel(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.ActiveModel(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// setActiveModel godoc
// @Summary  Select the active local model
// @Tags     models
// @Accept   json
// @Produce  json
// @Param    body body types.ActiveModelRequest true "Model"
// @Success  200 {object} types.ActiveModelResponse
// @Failure  403 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Security BearerAuth
// @Router   /models/active [put]
func (s *server) setActiveModel(w http.ResponseWriter, r *http.Request) {
	var req types.ActiveModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.svc.SetActiveModel(r.Context(), req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// verifyModel godoc
// @Summary  Verify or repair a model artifact
// @Tags     models
// @Accept   json
// @Produce  json
// @Param    body body types.VerifyModelRequest false "Model; empty verifies the active model"
// @Success  200 {object} types.VerificationResponse
// @Failure  422 {object} types.VerificationResponse
// @Failure  403 {object} types.ErrorResponse
// @Security BearerAuth
// @Router   /models/verify [post]
func (s *server) verifyModel(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyModelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := joinContexts(s.opts.baseContext(), r.Context())
	defer cancel()
	resp, err := s.svc.VerifyModel(ctx, req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.Outcome == string(integrity.StatusFailed) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// store godoc
// @Summary  Append a record to the audit ledger
// @Tags     audit
// @Accept   json
// @Produce  json
// @Param    body body types.StoreRequest true "Record"
// @Success  200 {object} types.StoreResponse
// @Security BearerAuth
// @Router   /store [post]
func (s *server) store(w http.ResponseWriter, r *http.Request) {
	var req types.StoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.svc.Store(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// verifyAudit godoc
// @Summary  Verify the audit ledger hash chain
// @Tags     audit
// @Produce  json
// @Success  200 {object} types.AuditVerifyResponse
// @Security BearerAuth
// @Router   /audit/verify [get]
func (s *server) verifyAudit(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.VerifyAudit(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
