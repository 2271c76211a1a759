package registry

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Well-known file names inside a registry directory.
const (
	RegistryFile  = "trusted_models.json"
	SignatureFile = "trusted_models.json.asc"
	PublicKeyFile = "publickey.asc"
	SidecarSuffix = ".sha256"
)

// Options tunes LoadAndVerifyWith.
type Options struct {
	// MaxAge rejects signatures whose file is older than this. Zero disables the check.
	MaxAge time.Duration
	Now    func() time.Time
}

// LoadAndVerify reads the registry and its detached signature and checks the
// signature against key before the registry content is parsed.
func LoadAndVerify(registryPath, signaturePath string, key PublicKey) (*Registry, error) {
	return LoadAndVerifyWith(registryPath, signaturePath, key, Options{})
}

// LoadAndVerifyWith is LoadAndVerify with freshness options.
func LoadAndVerifyWith(registryPath, signaturePath string, key PublicKey, opts Options) (*Registry, error) {
	if key == nil {
		return nil, newError(KindMissing, "trust registry public key not configured", nil)
	}
	data, err := readRequired(registryPath, "registry")
	if err != nil {
		return nil, err
	}
	sig, err := readRequired(signaturePath, "signature")
	if err != nil {
		return nil, err
	}
	if err := checkSidecar(registryPath, data); err != nil {
		return nil, err
	}
	if err := key.Verify(data, sig); err != nil {
		return nil, newError(KindSignatureInvalid, "trust registry signature invalid", err)
	}
	st, err := os.Stat(signaturePath)
	if err != nil {
		return nil, newError(KindMissing, "stat signature: "+err.Error(), err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if opts.MaxAge > 0 && now().Sub(st.ModTime()) > opts.MaxAge {
		return nil, newError(KindStale, fmt.Sprintf("trust registry signature older than %s", opts.MaxAge), nil)
	}
	// Only verified bytes reach the parser.
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}
	id, err := ContentID(data)
	if err != nil {
		return nil, newError(KindMalformed, "registry content id: "+err.Error(), err)
	}
	return &Registry{
		FormatVersion: doc.FormatVersion,
		IssuedAt:      doc.IssuedAt,
		Updated:       doc.Updated,
		Entries:       doc.Entries,
		CID:           id,
		Algorithm:     key.Algorithm(),
		SignedAt:      st.ModTime(),
	}, nil
}

// Open loads the registry from dir using the pinned key stored alongside it.
func Open(dir string, opts Options) (*Registry, error) {
	keyBytes, err := readRequired(filepath.Join(dir, PublicKeyFile), "public key")
	if err != nil {
		return nil, err
	}
	key, err := ParsePublicKey(keyBytes)
	if err != nil {
		return nil, newError(KindMissing, "trust registry public key unusable: "+err.Error(), err)
	}
	return LoadAndVerifyWith(filepath.Join(dir, RegistryFile), filepath.Join(dir, SignatureFile), key, opts)
}

func readRequired(path, what string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindMissing, fmt.Sprintf("trust %s not found: %s", what, path), err)
		}
		return nil, newError(KindMissing, fmt.Sprintf("read trust %s: %v", what, err), err)
	}
	return b, nil
}

// checkSidecar compares data with an optional "<registry>.sha256" file.
// The sidecar holds a hex digest, optionally followed by a filename.
func checkSidecar(registryPath string, data []byte) error {
	b, err := os.ReadFile(registryPath + SidecarSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return newError(KindMissing, "read registry digest sidecar: "+err.Error(), err)
	}
	fields := strings.Fields(string(bytes.TrimSpace(b)))
	if len(fields) == 0 {
		return newError(KindSignatureInvalid, "registry digest sidecar empty", nil)
	}
	sum := sha256.Sum256(data)
	if !strings.EqualFold(fields[0], hex.EncodeToString(sum[:])) {
		return newError(KindSignatureInvalid, "registry digest does not match sidecar", nil)
	}
	return nil
}
