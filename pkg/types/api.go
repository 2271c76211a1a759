package types

// QueryRequest is the raw client query accepted by POST /query.
type QueryRequest struct {
	// Free-form user text. It is sanitized before it becomes a prompt.
	// example: Explain liability under Art. 1218
	Text string `json:"text" example:"Explain liability under Art. 1218"`
	// Optional relative file references attached to the query.
	// example: ["contracts/x.pdf"]
	Files []string `json:"files,omitempty" example:"[\"contracts/x.pdf\"]"`
}

// ReasoningRequest is the normalized input for both reasoning paths.
type ReasoningRequest struct {
	// Prompt text, 1..50000 characters.
	// example: Summarize contract X
	Prompt string `json:"prompt" example:"Summarize contract X"`
	// Ordered context snippets, at most 20 entries.
	// example: []
	Context []string `json:"context" example:"[]"`
}

// ReasoningResponse is the normalized output of both reasoning paths.
type ReasoningResponse struct {
	// Summary text, at most 100000 characters.
	// example: The debtor is liable for non-performance unless...
	Summary string `json:"summary" example:"The debtor is liable for non-performance unless..."`
	// Citations, at most 100 entries. May be empty.
	Citations []string `json:"citations"`
	// Set only when the response is a degraded answer (e.g. remote provider failure).
	// example: upstream_timeout
	ErrorKind string `json:"error_kind,omitempty" example:"upstream_timeout"`
}

// VerifyResponse is returned by POST /verify.
type VerifyResponse struct {
	// example: true
	Valid bool `json:"valid" example:"true"`
	// example: Response appears valid
	Reason string `json:"reason" example:"Response appears valid"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: prompt is required
	Error string `json:"error" example:"prompt is required"`
	// Machine-checkable error kind.
	// example: validation_error
	Kind string `json:"kind" example:"validation_error"`
	// Offending field for validation errors.
	// example: prompt
	Field string `json:"field,omitempty" example:"prompt"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// CheckResult is one dependency probe in the health report.
type CheckResult struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: Storage accessible
	Message string `json:"message" example:"Storage accessible"`
	// example: 3
	ResponseTimeMS int64 `json:"response_time_ms" example:"3"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// RFC3339 server time.
	Timestamp string `json:"timestamp"`
	// example: 0.1.0
	Version string `json:"version" example:"0.1.0"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Reasoning path selected by configuration: remote or local.
	// example: local
	Mode   string                 `json:"mode" example:"local"`
	Checks map[string]CheckResult `json:"checks"`
}

// ActiveModelRequest is the body of PUT /models/active.
type ActiveModelRequest struct {
	// Artifact filename inside the models directory, or a registry id.
	// example: phi-3-mini-4k-instruct.Q4_K_M.gguf
	Model string `json:"model" example:"phi-3-mini-4k-instruct.Q4_K_M.gguf"`
}

// ActiveModelResponse describes the active local artifact.
type ActiveModelResponse struct {
	// False when nothing is selected.
	Set bool `json:"set"`
	// Artifact filename (never the absolute path).
	// example: phi-3-mini-4k-instruct.Q4_K_M.gguf
	Model string `json:"model,omitempty" example:"phi-3-mini-4k-instruct.Q4_K_M.gguf"`
	// Whether the artifact passed verification since its last replacement.
	Verified bool `json:"verified"`
}

// VerificationResponse reports one verify-or-repair outcome.
type VerificationResponse struct {
	// verified, repaired or failed.
	// example: verified
	Outcome string `json:"outcome" example:"verified"`
	// example: phi-3-mini-4k-instruct.Q4_K_M.gguf
	Model string `json:"model" example:"phi-3-mini-4k-instruct.Q4_K_M.gguf"`
	// Hex SHA-256 of the artifact after the call.
	Digest string `json:"digest,omitempty"`
	// Hex SHA-256 before a repair.
	OldDigest string `json:"old_digest,omitempty"`
	// Failure reason, when outcome is failed.
	// example: checksum mismatch after refetch
	Reason string `json:"reason,omitempty" example:"checksum mismatch after refetch"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Content id of the signed registry the list was read from.
	RegistryCID string `json:"registry_cid,omitempty"`
	// Registry entries merged with on-disk presence.
	Models []Model `json:"models"`
}

// StoreResponse is returned by POST /store.
type StoreResponse struct {
	// example: stored
	Status string `json:"status" example:"stored"`
	// Audit record id.
	ID string `json:"id"`
	// Chain hash of the appended record.
	ChainHash string `json:"chain_hash"`
}

// AuditVerifyResponse is returned by GET /audit/verify.
type AuditVerifyResponse struct {
	Valid   bool   `json:"valid"`
	Records int    `json:"records"`
	Reason  string `json:"reason,omitempty"`
}

// StoreRequest is the body of POST /store.
type StoreRequest struct {
	// Short action label recorded in the ledger.
	// example: opinion_generated
	Action string `json:"action" example:"opinion_generated"`
	// Arbitrary JSON object recorded verbatim.
	Payload map[string]any `json:"payload"`
}

// VerifyModelRequest is the body of POST /models/verify. An empty model
// verifies the active model.
type VerifyModelRequest struct {
	// example: phi-3-mini-instruct-q4_k_m
	Model string `json:"model,omitempty" example:"phi-3-mini-instruct-q4_k_m"`
}
