package capsule

import (
	"crypto/ed25519"
	"io"

	"github.com/veraison/go-cose"
)

// AgentCoseSigner mirrors the teacher's IdentifiableCoseSigner
// interface shape (massifs/identifiablecosesigner.go: a cose.Signer
// plus enough identity to verify against later), generalized from an
// ECDSA/ES256 key pair with a lookup-by-kid callback to a single
// Ed25519 key pair an agent holds directly.
type AgentCoseSigner interface {
	cose.Signer
	PublicKey() ed25519.PublicKey
	KeyIdentifier() string
}

// Ed25519Signer is the concrete AgentCoseSigner every CLAW agent uses:
// Ed25519 signatures need no external randomness and no curve
// parameters beyond the key itself, unlike the teacher's ECDSA/ES256
// signer.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	kid  string
}

// NewEd25519Signer wraps priv as an AgentCoseSigner identified by kid.
func NewEd25519Signer(priv ed25519.PrivateKey, kid string) *Ed25519Signer {
	return &Ed25519Signer{priv: priv, kid: kid}
}

func (s *Ed25519Signer) Algorithm() cose.Algorithm { return cose.AlgorithmEdDSA }

// Sign implements cose.Signer. Ed25519 is deterministic and needs no
// randomness, but the interface still takes an io.Reader for symmetry
// with signers that do.
func (s *Ed25519Signer) Sign(_ io.Reader, content []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, content), nil
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

func (s *Ed25519Signer) KeyIdentifier() string { return s.kid }
