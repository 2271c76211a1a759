package gateway

import (
	"context"
	"errors"
	"unicode/utf8"

	"privgate/internal/audit"
	"privgate/internal/inference"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

const (
	defaultStoreAction = "store"
	maxActionChars     = 64
)

// Store appends a client record to the audit ledger.
func (g *Gateway) Store(_ context.Context, req types.StoreRequest) (types.StoreResponse, error) {
	if g.ledger == nil {
		return types.StoreResponse{}, inference.ErrDependencyUnavailable("audit ledger not configured")
	}
	action := validate.Sanitize(req.Action)
	if action == "" {
		action = defaultStoreAction
	}
	if utf8.RuneCountInString(action) > maxActionChars {
		return types.StoreResponse{}, &validate.ValidationError{Field: "action", Message: "too long"}
	}
	if validate.ContainsInjection(action) {
		return types.StoreResponse{}, &validate.ValidationError{Field: "action", Message: "contains disallowed markup"}
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	rec, err := g.ledger.Append(action, payload)
	if errors.Is(err, audit.ErrRecordTooLarge) {
		return types.StoreResponse{}, &validate.ValidationError{Field: "payload", Message: "exceeds the audit record size limit"}
	}
	if err != nil {
		return types.StoreResponse{}, err
	}
	return types.StoreResponse{Status: "stored", ID: rec.ID, ChainHash: rec.ChainHash}, nil
}

// VerifyAudit checks the ledger hash chain.
func (g *Gateway) VerifyAudit(context.Context) (types.AuditVerifyResponse, error) {
	if g.ledger == nil {
		return types.AuditVerifyResponse{}, inference.ErrDependencyUnavailable("audit ledger not configured")
	}
	rep, err := g.ledger.Verify()
	if err != nil {
		return types.AuditVerifyResponse{}, err
	}
	return reportResponse(rep), nil
}

func reportResponse(rep audit.Report) types.AuditVerifyResponse {
	return types.AuditVerifyResponse{Valid: rep.Valid, Records: rep.Records, Reason: rep.Reason}
}

// record appends a gateway event; failures are logged, not returned.
func (g *Gateway) record(action string, payload map[string]any) {
	if g.ledger == nil {
		return
	}
	if _, err := g.ledger.Append(action, payload); err != nil {
		g.log.Error().Err(err).Str("action", action).Msg("audit append failed")
	}
}
