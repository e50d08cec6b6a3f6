package capsule

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/veraison/go-cose"
	"lukechampine.com/blake3"
)

// Build constructs a signed Capsule for revisionId: sign_input is
// revision_id || blake3(public_fields) || blake3(encrypted_private)
// (spec §4.7), so the signature binds the revision, the public
// provenance fields, and the private section's ciphertext (if any)
// without needing the private section to be decryptable to verify.
// privatePlaintext may be nil/empty, meaning "no private section" —
// EncryptedPrivate is then left empty and its hash is blake3 of an
// empty slice.
func Build(
	signer AgentCoseSigner,
	masterKey []byte,
	revisionId id.ObjectId,
	intentId id.IntentId,
	agentId string,
	evidence []objects.Evidence,
	createdMs int64,
	privatePlaintext []byte,
) (*objects.Capsule, error) {
	public := objects.CapsulePublicFields{
		RevisionId: revisionId,
		IntentId:   intentId,
		AgentId:    agentId,
		Evidence:   evidence,
		CreatedMs:  createdMs,
	}
	publicBytes, err := objects.CanonicalCbor(public)
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrSerialization)
	}
	publicHash := blake3.Sum256(publicBytes)

	var encryptedPrivate []byte
	if len(privatePlaintext) > 0 {
		key := DeriveIntentKey(masterKey, intentId)
		encryptedPrivate, err = EncryptPrivate(key, privatePlaintext)
		if err != nil {
			return nil, err
		}
	}
	privateHash := blake3.Sum256(encryptedPrivate)

	signInput := signInputFor(revisionId, publicHash, privateHash)

	msg := &cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: signer.Algorithm(),
				cose.HeaderLabelKeyID:     []byte(signer.KeyIdentifier()),
			},
		},
		Payload: signInput,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrSigningFailed)
	}
	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrSigningFailed)
	}

	return &objects.Capsule{
		Public:           public,
		EncryptedPrivate: encryptedPrivate,
		Signature:        objects.CapsuleSignature{Algorithm: "EdDSA", CoseSign1: coseBytes},
	}, nil
}

// Verify checks a capsule's signature against the agent's Ed25519
// public key, recomputing sign_input from the capsule's own public
// fields and encrypted private section rather than trusting either.
func Verify(c *objects.Capsule, publicKey ed25519.PublicKey) error {
	publicBytes, err := objects.CanonicalCbor(c.Public)
	if err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrSerialization)
	}
	publicHash := blake3.Sum256(publicBytes)
	privateHash := blake3.Sum256(c.EncryptedPrivate)

	want := signInputFor(c.Public.RevisionId, publicHash, privateHash)

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(c.Signature.CoseSign1); err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrVerificationFailed)
	}
	if !bytes.Equal(msg.Payload, want) {
		return clawerr.ErrVerificationFailed
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, publicKey)
	if err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrVerificationFailed)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("claw: %w", clawerr.ErrVerificationFailed)
	}
	return nil
}

// OpenPrivate decrypts a capsule's private section, deriving the
// intent's key from masterKey the same way Build did.
func OpenPrivate(c *objects.Capsule, masterKey []byte) ([]byte, error) {
	if len(c.EncryptedPrivate) == 0 {
		return nil, nil
	}
	key := DeriveIntentKey(masterKey, c.Public.IntentId)
	return DecryptPrivate(key, c.EncryptedPrivate)
}

func signInputFor(revisionId id.ObjectId, publicHash, privateHash [32]byte) []byte {
	out := make([]byte, 0, id.Size+32+32)
	out = append(out, revisionId[:]...)
	out = append(out, publicHash[:]...)
	out = append(out, privateHash[:]...)
	return out
}
