package objects

import "github.com/clawvcs/claw/id"

// Patch is a semantic, codec-specific edit to a single path, produced
// by a codec's diff operation and consumed by its apply/invert/
// commute/merge3 operations (spec §3, §4.4). The merge engine groups
// patches by (TargetPath, CodecId) when walking a branch's history
// back to its merge base (spec §4.6 step 3), so each Patch carries
// exactly one path rather than a batch of them.
type Patch struct {
	TargetPath string
	CodecId    string

	BaseObject   id.ObjectId // zero: this patch creates TargetPath
	ResultObject id.ObjectId // zero: this patch deletes TargetPath

	Ops          []byte // codec-defined ordered edit script, opaque to the core
	CodecPayload []byte // optional codec-specific side metadata
}

func (p *Patch) Kind() Kind { return KindPatch }

func (p *Patch) Encode() []byte {
	var out []byte
	out = appendStringField(out, 1, p.TargetPath)
	out = appendStringField(out, 2, p.CodecId)
	out = appendObjectIdField(out, 3, &p.BaseObject)
	out = appendObjectIdField(out, 4, &p.ResultObject)
	out = appendBytesField(out, 5, p.Ops)
	out = appendBytesField(out, 6, p.CodecPayload)
	return out
}

func decodePatch(payload []byte) (*Patch, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	p := &Patch{
		TargetPath: firstString(fields, 1),
		CodecId:    firstString(fields, 2),
	}
	if raw, ok := firstBytes(fields, 3); ok {
		copy(p.BaseObject[:], raw)
	}
	if raw, ok := firstBytes(fields, 4); ok {
		copy(p.ResultObject[:], raw)
	}
	if raw, ok := firstBytes(fields, 5); ok {
		p.Ops = raw
	}
	if raw, ok := firstBytes(fields, 6); ok {
		p.CodecPayload = raw
	}
	return p, nil
}
