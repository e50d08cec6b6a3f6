// Package capsule implements the crypto and Capsule build/verify
// operations that bind a Revision to agent provenance and evidence
// (spec §4.7): BLAKE3 per-intent key derivation, XChaCha20-Poly1305
// encryption of the optional private section, and Ed25519 signing
// wrapped as a COSE_Sign1 message. It follows the teacher's
// RootSigner/IdentifiableCoseSigner shape (massifs/rootsigner.go,
// massifs/identifiablecosesigner.go), generalized from ECDSA-signed MMR
// roots to Ed25519-signed capsules.
package capsule

import (
	"github.com/clawvcs/claw/id"
	"lukechampine.com/blake3"
)

// intentKeyContext is the fixed, hardcoded BLAKE3 derive_key context
// string for capsule private-section keys. It is versioned in the
// string itself, following blake3's recommendation that contexts never
// change once data has been encrypted under them.
const intentKeyContext = "claw intent capsule key v1"

// DeriveIntentKey derives a 32-byte XChaCha20-Poly1305 key for an
// intent's private capsule sections from a repository-wide master key,
// using BLAKE3's derive_key construction: the context string is fixed
// and public, while the intent id is mixed into the key material so
// every intent gets an independent key from the same master secret.
func DeriveIntentKey(masterKey []byte, intentId id.IntentId) []byte {
	material := make([]byte, 0, len(masterKey)+16)
	material = append(material, masterKey...)
	material = append(material, intentId[:]...)

	subKey := make([]byte, 32)
	blake3.DeriveKey(subKey, intentKeyContext, material)
	return subKey
}
