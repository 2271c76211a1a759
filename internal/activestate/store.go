// Package activestate persists which local model artifact is active.
package activestate

import "context"

// Key is the record key holding the active artifact path.
const Key = "LOCAL_MODEL_PATH"

// Store reads and writes the active model path. Get reports ok=false when
// nothing is set. Set replaces the value; it does not verify the artifact.
type Store interface {
	Get(ctx context.Context) (path string, ok bool, err error)
	Set(ctx context.Context, path string) error
}
