package objects

import "github.com/clawvcs/claw/id"

// Intent is the agent-native unit of planned work: a durable record of
// "what an agent means to do," which Changes get attached to and which
// a Capsule's provenance ultimately traces back to (spec §3).
type Intent struct {
	Id          id.IntentId
	Title       string
	Description string
	Status      IntentStatus
	Workstream  id.WorkstreamId // zero value means unassigned
	CreatedMs   int64
}

func (in *Intent) Kind() Kind { return KindIntent }

func (in *Intent) Encode() []byte {
	var out []byte
	out = appendBytesField(out, 1, in.Id[:])
	out = appendStringField(out, 2, in.Title)
	out = appendStringField(out, 3, in.Description)
	out = appendVarintField(out, 4, uint64(in.Status))
	if in.Workstream != (id.WorkstreamId{}) {
		out = appendBytesField(out, 5, in.Workstream[:])
	}
	out = appendVarintField(out, 6, uint64(in.CreatedMs))
	return out
}

func decodeIntent(payload []byte) (*Intent, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	in := &Intent{
		Title:       firstString(fields, 2),
		Description: firstString(fields, 3),
		Status:      IntentStatus(firstVarint(fields, 4)),
		CreatedMs:   int64(firstVarint(fields, 6)),
	}
	if raw, ok := firstBytes(fields, 1); ok {
		copy(in.Id[:], raw)
	}
	if raw, ok := firstBytes(fields, 5); ok {
		copy(in.Workstream[:], raw)
	}
	return in, nil
}
