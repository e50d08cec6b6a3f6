package objects

import "github.com/clawvcs/claw/id"

// Change is one proposed Revision working towards an Intent: the unit
// an agent submits, a reviewer accepts or rejects, and a Capsule
// ultimately certifies (spec §3).
type Change struct {
	Id       id.ChangeId
	Intent   id.IntentId
	Revision id.ObjectId
	Status   ChangeStatus
	CreatedMs int64
}

func (c *Change) Kind() Kind { return KindChange }

func (c *Change) Encode() []byte {
	var out []byte
	out = appendBytesField(out, 1, c.Id[:])
	out = appendBytesField(out, 2, c.Intent[:])
	out = appendObjectIdField(out, 3, &c.Revision)
	out = appendVarintField(out, 4, uint64(c.Status))
	out = appendVarintField(out, 5, uint64(c.CreatedMs))
	return out
}

func decodeChange(payload []byte) (*Change, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	c := &Change{
		Status:    ChangeStatus(firstVarint(fields, 4)),
		CreatedMs: int64(firstVarint(fields, 5)),
	}
	if raw, ok := firstBytes(fields, 1); ok {
		copy(c.Id[:], raw)
	}
	if raw, ok := firstBytes(fields, 2); ok {
		copy(c.Intent[:], raw)
	}
	if raw, ok := firstBytes(fields, 3); ok {
		copy(c.Revision[:], raw)
	}
	return c, nil
}
