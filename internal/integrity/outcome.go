package integrity

// Status is the kind of a verification outcome.
type Status string

const (
	StatusVerified Status = "verified"
	StatusRepaired Status = "repaired"
	StatusFailed   Status = "failed"
)

// Failure reasons. Fetch failures are reported as ReasonFetchPrefix + class.
const (
	ReasonMismatch      = "checksum mismatch after refetch"
	ReasonTimeout       = "timeout"
	ReasonUnknownSource = "unknown source"
	ReasonUnreadable    = "unreadable artifact"
	ReasonFetchPrefix   = "fetch error: "
)

// Outcome is the result of VerifyOrRepair.
//
//	Verified: Digest is the digest on disk.
//	Repaired: OldDigest was replaced by Digest.
//	Failed:   Reason says why; see the Reason* constants.
type Outcome struct {
	Status    Status `json:"outcome"`
	Path      string `json:"-"`
	Digest    string `json:"digest,omitempty"`
	OldDigest string `json:"old_digest,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// OK reports whether the artifact at Path is now verified.
func (o Outcome) OK() bool { return o.Status == StatusVerified || o.Status == StatusRepaired }

func verified(path, digest string) Outcome {
	return Outcome{Status: StatusVerified, Path: path, Digest: digest}
}

func repaired(path, oldDigest, newDigest string) Outcome {
	return Outcome{Status: StatusRepaired, Path: path, Digest: newDigest, OldDigest: oldDigest}
}

func failed(path, reason string) Outcome {
	return Outcome{Status: StatusFailed, Path: path, Reason: reason}
}
