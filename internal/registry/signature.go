package registry

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/openpgp"
)

// PublicKey verifies detached signatures over the raw registry bytes.
type PublicKey interface {
	Algorithm() string
	Verify(message, signature []byte) error
}

const (
	AlgPGP        = "pgp"
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

var errBadSignature = errors.New("signature verification failed")

// ParsePublicKey decodes a pinned public key. Supported encodings:
//   - an ASCII-armored OpenPGP public key block
//   - ed25519:<base64>
//   - dilithium3:<base64>
func ParsePublicKey(b []byte) (PublicKey, error) {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, "-----BEGIN PGP PUBLIC KEY BLOCK-----") {
		ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(s))
		if err != nil {
			return nil, fmt.Errorf("invalid public key format: %w", err)
		}
		if len(ring) == 0 {
			return nil, errors.New("invalid public key format: empty key ring")
		}
		return pgpKey{ring: ring}, nil
	}
	alg, enc, ok := strings.Cut(s, ":")
	if !ok {
		return nil, errors.New("invalid public key format")
	}
	raw, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("invalid public key base64: %w", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return nil, errors.New("invalid ed25519 public key length")
		}
		return ed25519Key(raw), nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		return dilithiumKey{pk: &pk}, nil
	default:
		return nil, fmt.Errorf("unsupported public key algorithm %q", alg)
	}
}

type pgpKey struct{ ring openpgp.EntityList }

func (pgpKey) Algorithm() string { return AlgPGP }

func (k pgpKey) Verify(message, signature []byte) error {
	var err error
	if bytes.HasPrefix(bytes.TrimSpace(signature), []byte("-----BEGIN PGP SIGNATURE-----")) {
		_, err = openpgp.CheckArmoredDetachedSignature(k.ring, bytes.NewReader(message), bytes.NewReader(signature))
	} else {
		_, err = openpgp.CheckDetachedSignature(k.ring, bytes.NewReader(message), bytes.NewReader(signature))
	}
	if err != nil {
		return errBadSignature
	}
	return nil
}

// ed25519 and dilithium3 sign sha256(message); the signature file holds the
// base64 signature, optionally prefixed with "<alg>:".
type ed25519Key ed25519.PublicKey

func (ed25519Key) Algorithm() string { return AlgEd25519 }

func (k ed25519Key) Verify(message, signature []byte) error {
	sig, err := decodeSignature(AlgEd25519, signature)
	if err != nil {
		return err
	}
	if len(sig) != ed25519.SignatureSize {
		return errBadSignature
	}
	digest := sha256.Sum256(message)
	if !ed25519.Verify(ed25519.PublicKey(k), digest[:], sig) {
		return errBadSignature
	}
	return nil
}

type dilithiumKey struct{ pk *mode3.PublicKey }

func (dilithiumKey) Algorithm() string { return AlgDilithium3 }

func (k dilithiumKey) Verify(message, signature []byte) error {
	sig, err := decodeSignature(AlgDilithium3, signature)
	if err != nil {
		return err
	}
	if len(sig) != mode3.SignatureSize {
		return errBadSignature
	}
	digest := sha256.Sum256(message)
	if !mode3.Verify(k.pk, digest[:], sig) {
		return errBadSignature
	}
	return nil
}

func decodeSignature(alg string, b []byte) ([]byte, error) {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, alg+":")
	sig, err := decodeBase64(s)
	if err != nil {
		return nil, errBadSignature
	}
	return sig, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
