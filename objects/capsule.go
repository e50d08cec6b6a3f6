package objects

import (
	"github.com/clawvcs/claw/id"
	"github.com/fxamacker/cbor/v2"
)

// Evidence is one required-check result an agent attaches to a
// capsule, consumed by policy.Evaluate's required-checks-against-evidence
// validation (spec §4.10).
type Evidence struct {
	CheckName string `cbor:"check_name"`
	Passed    bool   `cbor:"passed"`
	Detail    string `cbor:"detail,omitempty"`
}

// CapsulePublicFields is the portion of a capsule that is never
// encrypted: it must be readable by anyone who can see the revision,
// since the sign_input binds to its hash (spec §4.7). It is CBOR
// encoded with canonical/deterministic options, mirroring the
// teacher's rootsigner CBOR envelope (massifs/cborcodec.go), rather
// than folded into the protowire framing used by the other kinds.
type CapsulePublicFields struct {
	RevisionId id.ObjectId `cbor:"revision_id"`
	IntentId   id.IntentId `cbor:"intent_id"`
	AgentId    string      `cbor:"agent_id"`
	Evidence   []Evidence  `cbor:"evidence,omitempty"`
	CreatedMs  int64       `cbor:"created_ms"`
}

// CapsuleSignature wraps the Ed25519 signature over sign_input as a
// COSE_Sign1 message (spec §4.7; the COSE envelope is a SPEC_FULL.md
// ambient-stack choice grounded on the teacher's go-cose dependency).
type CapsuleSignature struct {
	Algorithm string `cbor:"algorithm"`
	CoseSign1 []byte `cbor:"cose_sign1"`
}

// Capsule binds a Revision to the agent provenance and evidence that
// produced it (spec §3, §4.7): public fields in the clear, an optional
// encrypted private section (XChaCha20-Poly1305, nonce-prepended), and
// a signature over both.
type Capsule struct {
	Public           CapsulePublicFields
	EncryptedPrivate []byte // nonce(24) || ciphertext, empty if no private section
	Signature        CapsuleSignature
}

func (c *Capsule) Kind() Kind { return KindCapsule }

// publicFieldsCbor returns the canonical CBOR encoding of Public, used
// both for on-disk framing and as an input to the capsule package's
// sign_input computation.
func (c *Capsule) publicFieldsCbor() ([]byte, error) {
	return canonicalCbor(c.Public)
}

var cborEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

func canonicalCbor(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// CanonicalCbor exposes the same canonical CBOR encoding Capsule.Encode
// uses internally, so the capsule package can hash CapsulePublicFields
// for sign_input without re-deriving its own encoder options.
func CanonicalCbor(v any) ([]byte, error) {
	return canonicalCbor(v)
}

func (c *Capsule) Encode() []byte {
	pub, err := c.publicFieldsCbor()
	if err != nil {
		// Public fields are a plain struct of scalars/slices; only a
		// programmer error (e.g. an unsupported field type) reaches
		// here, which Encode has no way to report given its signature.
		panic(err)
	}
	sig, err := canonicalCbor(c.Signature)
	if err != nil {
		panic(err)
	}
	var out []byte
	out = appendBytesField(out, 1, pub)
	out = appendBytesField(out, 2, c.EncryptedPrivate)
	out = appendBytesField(out, 3, sig)
	return out
}

func decodeCapsule(payload []byte) (*Capsule, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	c := &Capsule{}
	if raw, ok := firstBytes(fields, 1); ok {
		if err := cbor.Unmarshal(raw, &c.Public); err != nil {
			return nil, err
		}
	}
	c.EncryptedPrivate, _ = firstBytes(fields, 2)
	if raw, ok := firstBytes(fields, 3); ok {
		if err := cbor.Unmarshal(raw, &c.Signature); err != nil {
			return nil, err
		}
	}
	return c, nil
}
