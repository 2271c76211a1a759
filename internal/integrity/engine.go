package integrity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"privgate/internal/common/fsutil"
	"privgate/internal/registry"
)

const defaultFetchTimeout = 30 * time.Minute

// Config wires an Engine. Unset fields get working defaults.
type Config struct {
	Fetcher      Fetcher
	Source       Source
	Publisher    EventPublisher
	Logger       zerolog.Logger
	FetchTimeout time.Duration
}

// Engine verifies local artifacts against expected digests and repairs them
// from their source. Calls for the same path are serialized.
type Engine struct {
	fetcher      Fetcher
	source       Source
	pub          EventPublisher
	log          zerolog.Logger
	fetchTimeout time.Duration
	tracer       trace.Tracer

	locks *pathLocks

	mu     sync.Mutex
	stamps map[string]stamp
}

// stamp records what the file looked like when it last verified.
type stamp struct {
	digest  string
	size    int64
	modTime time.Time
}

func New(cfg Config) *Engine {
	e := &Engine{
		fetcher:      cfg.Fetcher,
		source:       cfg.Source,
		pub:          cfg.Publisher,
		log:          cfg.Logger,
		fetchTimeout: cfg.FetchTimeout,
		tracer:       otel.Tracer("privgate/integrity"),
		locks:        newPathLocks(),
		stamps:       make(map[string]stamp),
	}
	if e.fetcher == nil {
		e.fetcher = NewHTTPFetcher(0)
	}
	if e.source == nil {
		e.source = NewInlineTable(DefaultInlineEntries())
	}
	if e.pub == nil {
		e.pub = noopPublisher{}
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = defaultFetchTimeout
	}
	return e
}

// Source returns the truth source used by VerifyArtifact and VerifyModel.
func (e *Engine) Source() Source { return e.source }

// VerifyOrRepair ensures path holds bytes whose SHA-256 equals expected,
// fetching from sourceURI when the file is missing or wrong. A fetched file
// only replaces path after its own digest matched, so a failed repair never
// leaves unverified bytes at path.
func (e *Engine) VerifyOrRepair(ctx context.Context, path, expected, sourceURI string) Outcome {
	return e.verify(ctx, "", path, expected, sourceURI)
}

func (e *Engine) verify(ctx context.Context, model, path, expected, sourceURI string) Outcome {
	ctx, span := e.tracer.Start(ctx, "integrity.verify", trace.WithAttributes(
		attribute.String("artifact", filepath.Base(path)),
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	unlock := e.locks.Lock(cleanPath(path))
	out := e.verifyLocked(ctx, path, expected, sourceURI)
	unlock()
	dur := time.Since(start)

	span.SetAttributes(attribute.String("outcome", string(out.Status)))
	if out.Status == StatusFailed {
		span.SetStatus(codes.Error, out.Reason)
	}
	outcomesTotal.WithLabelValues(string(out.Status)).Inc()
	verifyDuration.WithLabelValues(string(out.Status)).Observe(dur.Seconds())

	ev := e.log.Info()
	if out.Status == StatusFailed {
		ev = e.log.Warn()
	}
	ev.Str("artifact", filepath.Base(path)).
		Str("model", model).
		Str("outcome", string(out.Status)).
		Str("digest", out.Digest).
		Str("old_digest", out.OldDigest).
		Str("reason", out.Reason).
		Dur("dur", dur).
		Msg("integrity check")
	e.pub.Publish(Event{Name: eventName(out.Status), Model: model, Outcome: out, Duration: dur})
	return out
}

func (e *Engine) verifyLocked(ctx context.Context, path, expected, sourceURI string) Outcome {
	current, err := ComputeDigest(path)
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case err == nil && DigestEqual(current, expected):
		e.setStamp(path, current)
		return verified(path, current)
	case err != nil && !missing:
		e.clearStamp(path)
		return failed(path, ReasonUnreadable)
	}
	e.clearStamp(path)
	if sourceURI == "" {
		return failed(path, ReasonUnknownSource)
	}

	fetched, err := e.fetchTemp(ctx, path, sourceURI)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failed(path, ReasonTimeout)
		}
		return failed(path, ReasonFetchPrefix+FetchClass(err))
	}
	tmp := fetched.path
	if !DigestEqual(fetched.digest, expected) {
		_ = os.Remove(tmp)
		if !missing {
			// The on-disk copy is known bad and could not be repaired.
			_ = os.Remove(path)
		}
		return failed(path, ReasonMismatch)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return failed(path, ReasonUnreadable)
	}
	e.setStamp(path, fetched.digest)
	if missing {
		return verified(path, fetched.digest)
	}
	return repaired(path, current, fetched.digest)
}

type fetchedFile struct {
	path   string
	digest string
}

// fetchTemp downloads sourceURI into a temp sibling of path, hashing as it
// writes. The temp file is removed on error.
func (e *Engine) fetchTemp(ctx context.Context, path, sourceURI string) (fetchedFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fetchedFile{}, &FetchError{Class: "io", Err: err}
	}
	f, err := fsutil.TempSibling(path, ".download")
	if err != nil {
		return fetchedFile{}, &FetchError{Class: "io", Err: err}
	}
	tmp := f.Name()

	fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	h := sha256.New()
	n, ferr := e.fetcher.Fetch(fctx, sourceURI, io.MultiWriter(f, h))
	fetchBytesTotal.Add(float64(n))
	if ferr == nil {
		ferr = f.Sync()
	}
	if cerr := f.Close(); ferr == nil && cerr != nil {
		ferr = cerr
	}
	if ferr != nil {
		_ = os.Remove(tmp)
		if fctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fetchedFile{}, context.DeadlineExceeded
		}
		return fetchedFile{}, ferr
	}
	return fetchedFile{path: tmp, digest: hex.EncodeToString(h.Sum(nil))}, nil
}

// VerifyArtifact resolves the expectation for path through the engine's
// Source and verifies it. Unlisted or untrusted artifacts are refused
// before any file or network I/O; the returned error is the
// *registry.TrustError. A refusal also revokes any earlier verification.
func (e *Engine) VerifyArtifact(ctx context.Context, path string) (Outcome, error) {
	entry, err := e.source.Resolve(ctx, filepath.Base(path))
	if err != nil {
		e.revoke(path, err)
		return failed(path, trustReason(err)), err
	}
	return e.verify(ctx, entry.ID, path, entry.Digest, entry.SourceURI), nil
}

// VerifyModel resolves key (an id or filename) and verifies the artifact at
// dir/<filename>, fetching it when missing. It is the install path.
func (e *Engine) VerifyModel(ctx context.Context, dir, key string) (Outcome, registry.Entry, error) {
	entry, err := e.source.Resolve(ctx, key)
	if err != nil {
		e.revoke(filepath.Join(dir, filepath.Base(key)), err)
		return failed("", trustReason(err)), entry, err
	}
	path := filepath.Join(dir, entry.File())
	return e.verify(ctx, entry.ID, path, entry.Digest, entry.SourceURI), entry, nil
}

// CheckTrust re-resolves path through the Source. When the artifact is no
// longer listed and trusted, or its expected digest changed, the recorded
// verification is dropped. The trust error, if any, is returned.
func (e *Engine) CheckTrust(ctx context.Context, path string) error {
	entry, err := e.source.Resolve(ctx, filepath.Base(path))
	if err != nil {
		e.revoke(path, err)
		return err
	}
	e.mu.Lock()
	st, ok := e.stamps[cleanPath(path)]
	if ok && !DigestEqual(st.digest, entry.Digest) {
		delete(e.stamps, cleanPath(path))
	}
	e.mu.Unlock()
	return nil
}

// revoke forgets path after a trust refusal. An unusable registry voids
// every verification made against it.
func (e *Engine) revoke(path string, err error) {
	if registry.IsUnavailable(err) {
		e.mu.Lock()
		clear(e.stamps)
		e.mu.Unlock()
		return
	}
	e.clearStamp(path)
}

// IsVerified reports whether path passed verification and the file on disk
// still has the size and modification time it had then.
func (e *Engine) IsVerified(path string) bool {
	key := cleanPath(path)
	e.mu.Lock()
	st, ok := e.stamps[key]
	e.mu.Unlock()
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() == st.size && info.ModTime().Equal(st.modTime)
}

// VerifiedDigest returns the digest recorded for path, if any.
func (e *Engine) VerifiedDigest(path string) (string, bool) {
	if !e.IsVerified(path) {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.stamps[cleanPath(path)]
	return st.digest, true
}

func (e *Engine) setStamp(path, digest string) {
	info, err := os.Stat(path)
	if err != nil {
		e.clearStamp(path)
		return
	}
	e.mu.Lock()
	e.stamps[cleanPath(path)] = stamp{digest: digest, size: info.Size(), modTime: info.ModTime()}
	e.mu.Unlock()
}

func (e *Engine) clearStamp(path string) {
	e.mu.Lock()
	delete(e.stamps, cleanPath(path))
	e.mu.Unlock()
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func trustReason(err error) string {
	switch registry.KindOf(err) {
	case registry.KindNotListed:
		return "not listed"
	case registry.KindMarkedUntrusted:
		return "untrusted"
	case "":
		return "trust check failed"
	default:
		return "registry unavailable"
	}
}
