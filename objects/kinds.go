// Package objects implements the twelve typed, immutable,
// content-addressed records of the core data model (spec §3) and their
// deterministic wire encoding (spec §4.1's "deterministic Protobuf
// encoding per object kind"). Encoding is hand-rolled over
// google.golang.org/protobuf/encoding/protowire rather than generated
// from a .proto schema, following the design note that runtime
// polymorphism over object kinds should be "a tagged sum of twelve
// variants plus a type_tag byte on disk" — Kind is that tag, Object is
// that sum type.
package objects

// Kind is the one-byte type tag stored alongside every COF-framed
// object (spec §3, §4.1).
type Kind byte

const (
	KindBlob       Kind = 0x01
	KindTree       Kind = 0x02
	KindPatch      Kind = 0x03
	KindRevision   Kind = 0x04
	KindSnapshot   Kind = 0x05
	KindIntent     Kind = 0x06
	KindChange     Kind = 0x07
	KindConflict   Kind = 0x08
	KindCapsule    Kind = 0x09
	KindPolicy     Kind = 0x0A
	KindWorkstream Kind = 0x0B
	KindRefLog     Kind = 0x0C
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindPatch:
		return "patch"
	case KindRevision:
		return "revision"
	case KindSnapshot:
		return "snapshot"
	case KindIntent:
		return "intent"
	case KindChange:
		return "change"
	case KindConflict:
		return "conflict"
	case KindCapsule:
		return "capsule"
	case KindPolicy:
		return "policy"
	case KindWorkstream:
		return "workstream"
	case KindRefLog:
		return "reflog"
	default:
		return "unknown"
	}
}

// Object is the sum type every stored record satisfies. Kind pairs
// with the disk type_tag byte so a dispatch on Decode can never
// desynchronize from the value it produced.
type Object interface {
	Kind() Kind
	Encode() []byte
}

// Mode is a tree entry's file mode (spec §3 Tree).
type Mode byte

const (
	ModeRegular    Mode = 0
	ModeExecutable Mode = 1
	ModeSymlink    Mode = 2
	ModeDirectory  Mode = 3
)

// IntentStatus is the lifecycle state of an Intent (spec §3).
type IntentStatus byte

const (
	IntentOpen IntentStatus = iota
	IntentBlocked
	IntentDone
	IntentSuperseded
)

// ChangeStatus is the lifecycle state of a Change (spec §3).
type ChangeStatus byte

const (
	ChangeOpen ChangeStatus = iota
	ChangeReady
	ChangeIntegrated
	ChangeAbandoned
)

// ConflictStatus is the lifecycle state of a Conflict (spec §3).
type ConflictStatus byte

const (
	ConflictOpen ConflictStatus = iota
	ConflictResolved
)

// Visibility gates a Policy's quarantine behavior (spec §3, §4.10).
type Visibility byte

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityRestricted
)
