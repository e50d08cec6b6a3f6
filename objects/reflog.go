package objects

import "github.com/clawvcs/claw/id"

// RefLog is one append-only entry recording a single ref update: old
// value, new value, who made the change, and why (spec §3, §4.3). The
// store package appends the object's encoded bytes, length-prefixed,
// to a per-ref reflog file; RefLog itself stays content-addressable
// like every other kind so a reflog entry can be referenced (e.g. by a
// sync negotiation) independent of its position in that file.
type RefLog struct {
	RefName   string
	Old       id.ObjectId // zero means "ref did not previously exist"
	New       id.ObjectId
	Actor     string
	Message   string
	TimestampMs int64
}

func (r *RefLog) Kind() Kind { return KindRefLog }

func (r *RefLog) Encode() []byte {
	var out []byte
	out = appendStringField(out, 1, r.RefName)
	out = appendObjectIdField(out, 2, &r.Old)
	out = appendObjectIdField(out, 3, &r.New)
	out = appendStringField(out, 4, r.Actor)
	out = appendStringField(out, 5, r.Message)
	out = appendVarintField(out, 6, uint64(r.TimestampMs))
	return out
}

func decodeRefLog(payload []byte) (*RefLog, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	r := &RefLog{
		RefName:     firstString(fields, 1),
		Actor:       firstString(fields, 4),
		Message:     firstString(fields, 5),
		TimestampMs: int64(firstVarint(fields, 6)),
	}
	if raw, ok := firstBytes(fields, 2); ok {
		copy(r.Old[:], raw)
	}
	if raw, ok := firstBytes(fields, 3); ok {
		copy(r.New[:], raw)
	}
	return r, nil
}
