package registry

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signer produces detached registry signatures for the non-PGP schemes.
// PGP signatures are produced with gpg.
type Signer interface {
	Algorithm() string
	// Sign returns "<alg>:<base64>" over sha256(message).
	Sign(message []byte) ([]byte, error)
	PublicKeyText() string
	PrivateKeyText() string
}

// GenerateSigner creates a new keypair for alg (ed25519 or dilithium3).
func GenerateSigner(alg string, rand io.Reader) (Signer, error) {
	switch alg {
	case AlgEd25519:
		pub, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return nil, err
		}
		return ed25519Signer{pub: pub, priv: priv}, nil
	case AlgDilithium3:
		pk, sk, err := mode3.GenerateKey(rand)
		if err != nil {
			return nil, err
		}
		return dilithiumSigner{pk: pk, sk: sk}, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

// ParseSigner decodes a private key written by PrivateKeyText.
func ParseSigner(b []byte) (Signer, error) {
	alg, enc, ok := strings.Cut(strings.TrimSpace(string(b)), ":")
	if !ok {
		return nil, fmt.Errorf("invalid private key format")
	}
	raw, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("invalid private key base64: %w", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid ed25519 private key length")
		}
		priv := ed25519.PrivateKey(raw)
		return ed25519Signer{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
	case AlgDilithium3:
		var sk mode3.PrivateKey
		if err := sk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("invalid dilithium3 private key: %w", err)
		}
		return dilithiumSigner{pk: sk.Public().(*mode3.PublicKey), sk: &sk}, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

type ed25519Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func (ed25519Signer) Algorithm() string { return AlgEd25519 }

func (s ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig := ed25519.Sign(s.priv, digest[:])
	return []byte(AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(sig) + "\n"), nil
}

func (s ed25519Signer) PublicKeyText() string {
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(s.pub)
}

func (s ed25519Signer) PrivateKeyText() string {
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(s.priv)
}

type dilithiumSigner struct {
	pk *mode3.PublicKey
	sk *mode3.PrivateKey
}

func (dilithiumSigner) Algorithm() string { return AlgDilithium3 }

func (s dilithiumSigner) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.sk, digest[:], sig)
	return []byte(AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(sig) + "\n"), nil
}

func (s dilithiumSigner) PublicKeyText() string {
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(s.pk.Bytes())
}

func (s dilithiumSigner) PrivateKeyText() string {
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(s.sk.Bytes())
}
