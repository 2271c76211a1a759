package audit

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"privgate/internal/integrity"
)

// IntegrityPublisher records every finished verification in the ledger.
// Only the artifact file name is recorded, never its absolute path.
type IntegrityPublisher struct {
	Ledger *Ledger
	Logger zerolog.Logger
}

type integrityPayload struct {
	Model      string `json:"model,omitempty"`
	Artifact   string `json:"artifact"`
	Outcome    string `json:"outcome"`
	Digest     string `json:"digest,omitempty"`
	OldDigest  string `json:"old_digest,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (p IntegrityPublisher) Publish(e integrity.Event) {
	if p.Ledger == nil {
		return
	}
	_, err := p.Ledger.Append(e.Name, integrityPayload{
		Model:      e.Model,
		Artifact:   filepath.Base(e.Outcome.Path),
		Outcome:    string(e.Outcome.Status),
		Digest:     e.Outcome.Digest,
		OldDigest:  e.Outcome.OldDigest,
		Reason:     e.Outcome.Reason,
		DurationMS: e.Duration.Milliseconds(),
	})
	if err != nil {
		p.Logger.Error().Err(err).Str("event", e.Name).Msg("audit append failed")
	}
}
