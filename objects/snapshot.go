package objects

import "github.com/clawvcs/claw/id"

// Snapshot pins a materialized tree to the revision it was taken from,
// letting a partial clone or a sync peer fetch a known-good full tree
// without replaying the whole patch chain from the root (spec §3,
// §4.9 partial-clone filter).
type Snapshot struct {
	Revision  id.ObjectId
	Tree      id.ObjectId
	CreatedMs int64
}

func (s *Snapshot) Kind() Kind { return KindSnapshot }

func (s *Snapshot) Encode() []byte {
	var out []byte
	out = appendObjectIdField(out, 1, &s.Revision)
	out = appendObjectIdField(out, 2, &s.Tree)
	out = appendVarintField(out, 3, uint64(s.CreatedMs))
	return out
}

func decodeSnapshot(payload []byte) (*Snapshot, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{}
	if raw, ok := firstBytes(fields, 1); ok {
		copy(s.Revision[:], raw)
	}
	if raw, ok := firstBytes(fields, 2); ok {
		copy(s.Tree[:], raw)
	}
	s.CreatedMs = int64(firstVarint(fields, 3))
	return s, nil
}
