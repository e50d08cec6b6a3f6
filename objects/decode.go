package objects

import "github.com/clawvcs/claw/clawerr"

// Decode dispatches on the on-disk type_tag byte (which cof.Read
// hands back alongside the decompressed payload) to the matching
// kind's decoder, so a caller never has to know which concrete type
// it's about to get until Kind() tells it.
func Decode(kind Kind, payload []byte) (Object, error) {
	switch kind {
	case KindBlob:
		return decodeBlob(payload)
	case KindTree:
		return decodeTree(payload)
	case KindPatch:
		return decodePatch(payload)
	case KindRevision:
		return decodeRevision(payload)
	case KindSnapshot:
		return decodeSnapshot(payload)
	case KindIntent:
		return decodeIntent(payload)
	case KindChange:
		return decodeChange(payload)
	case KindConflict:
		return decodeConflict(payload)
	case KindCapsule:
		return decodeCapsule(payload)
	case KindPolicy:
		return decodePolicy(payload)
	case KindWorkstream:
		return decodeWorkstream(payload)
	case KindRefLog:
		return decodeRefLog(payload)
	default:
		return nil, clawerr.ErrUnknownTypeTag
	}
}
