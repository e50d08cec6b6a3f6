package objects

import "github.com/clawvcs/claw/id"

// Workstream groups related Intents under a shared name, giving agents
// a coarser planning unit than a single Intent (spec §3; the id format
// is a SPEC_FULL.md addition — see id.WorkstreamId).
type Workstream struct {
	Id        id.WorkstreamId
	Name      string
	Intents   []id.IntentId
	CreatedMs int64
}

func (w *Workstream) Kind() Kind { return KindWorkstream }

func (w *Workstream) Encode() []byte {
	var out []byte
	out = appendBytesField(out, 1, w.Id[:])
	out = appendStringField(out, 2, w.Name)
	for _, in := range w.Intents {
		out = appendBytesField(out, 3, in[:])
	}
	out = appendVarintField(out, 4, uint64(w.CreatedMs))
	return out
}

func decodeWorkstream(payload []byte) (*Workstream, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	w := &Workstream{
		Name:      firstString(fields, 2),
		CreatedMs: int64(firstVarint(fields, 4)),
	}
	if raw, ok := firstBytes(fields, 1); ok {
		copy(w.Id[:], raw)
	}
	for _, f := range fieldsFor(fields, 3) {
		var in id.IntentId
		copy(in[:], f.Raw)
		w.Intents = append(w.Intents, in)
	}
	return w, nil
}
