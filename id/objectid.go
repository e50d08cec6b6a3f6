// Package id implements the two identity schemes the core data model
// relies on (spec §3): content-addressed ObjectIds hashed with
// domain-separated BLAKE3, and 128-bit ULID-style time-sortable ids
// for Intent/Change/Conflict/Workstream records.
package id

import (
	"encoding/hex"
	"strings"

	"github.com/clawvcs/claw/clawerr"
	"lukechampine.com/blake3"
)

// Size is the byte length of an ObjectId (BLAKE3-256 output).
const Size = 32

// domainPrefix is prepended to every hash input, as specified: the
// literal bytes "claw\0".
var domainPrefix = []byte("claw\x00")

// objectVersion is the version byte mixed into every ObjectId hash
// input. It is distinct from the COF container version (cof.Version):
// this one versions the *hashing scheme*, the other versions the
// *framing format*.
const objectVersion byte = 0x01

// ObjectId is a 32-byte BLAKE3 hash of a domain-separated serialization.
type ObjectId [Size]byte

// Zero reports whether id is the all-zero sentinel (used in reflog
// lines for "no previous target").
func (o ObjectId) Zero() bool {
	return o == ObjectId{}
}

// Hash computes the ObjectId for a stored kind's serialized payload:
// BLAKE3("claw\0" || type_tag || version_byte || payload).
func Hash(typeTag byte, payload []byte) ObjectId {
	h := blake3.New(Size, nil)
	h.Write(domainPrefix)
	h.Write([]byte{typeTag, objectVersion})
	h.Write(payload)

	var out ObjectId
	copy(out[:], h.Sum(nil))
	return out
}

// String renders the 64-character lowercase hex form.
func (o ObjectId) String() string {
	return hex.EncodeToString(o[:])
}

// Base32 renders the "clw_" + lowercase base32-nopad form.
func (o ObjectId) Base32() string {
	return "clw_" + strings.ToLower(base32NoPad.EncodeToString(o[:]))
}

// ParseObjectId accepts either display form (§6: both bijective).
func ParseObjectId(s string) (ObjectId, error) {
	var out ObjectId
	if strings.HasPrefix(s, "clw_") {
		b, err := base32NoPad.DecodeString(strings.ToUpper(strings.TrimPrefix(s, "clw_")))
		if err != nil || len(b) != Size {
			return out, clawerr.ErrInvalidObjectId
		}
		copy(out[:], b)
		return out, nil
	}
	if len(s) != Size*2 {
		return out, clawerr.ErrInvalidObjectId
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return out, clawerr.ErrInvalidObjectId
	}
	copy(out[:], b)
	return out, nil
}

// MarshalText / UnmarshalText let ObjectId drop straight into JSON
// structures as a plain hex string field.
func (o ObjectId) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *ObjectId) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectId(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalBinary / UnmarshalBinary let ObjectId drop straight into the
// capsule package's CBOR-encoded public fields (§4.7) as a fixed-length
// byte string, which fxamacker/cbor honors via encoding.BinaryMarshaler.
func (o ObjectId) MarshalBinary() ([]byte, error) {
	return o[:], nil
}

func (o *ObjectId) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return clawerr.ErrInvalidObjectId
	}
	copy(o[:], data)
	return nil
}
