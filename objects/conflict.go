package objects

import "github.com/clawvcs/claw/id"

// Conflict records one (target_path, codec_id) group's merge3 failure
// between two diverged revisions: the revision tips and the two
// branches' patch chains that fed the failed merge, and — once
// resolved — the patches that supersede them (spec §3, §4.6 step 4).
type Conflict struct {
	Id id.ConflictId

	BaseRevision  id.ObjectId // zero if the merge found no common ancestor to record
	LeftRevision  id.ObjectId
	RightRevision id.ObjectId

	FilePath string
	CodecId  string

	LeftPatchIds       []id.ObjectId
	RightPatchIds      []id.ObjectId
	ResolutionPatchIds []id.ObjectId // empty until Status == ConflictResolved

	Status      ConflictStatus
	CreatedAtMs int64
}

func (c *Conflict) Kind() Kind { return KindConflict }

func (c *Conflict) Encode() []byte {
	var out []byte
	out = appendBytesField(out, 1, c.Id[:])
	out = appendObjectIdField(out, 2, &c.BaseRevision)
	out = appendObjectIdField(out, 3, &c.LeftRevision)
	out = appendObjectIdField(out, 4, &c.RightRevision)
	out = appendStringField(out, 5, c.FilePath)
	out = appendStringField(out, 6, c.CodecId)
	out = appendObjectIdsField(out, 7, c.LeftPatchIds)
	out = appendObjectIdsField(out, 8, c.RightPatchIds)
	out = appendObjectIdsField(out, 9, c.ResolutionPatchIds)
	out = appendVarintField(out, 10, uint64(c.Status))
	out = appendVarintField(out, 11, uint64(c.CreatedAtMs))
	return out
}

func decodeConflict(payload []byte) (*Conflict, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	c := &Conflict{
		FilePath:           firstString(fields, 5),
		CodecId:            firstString(fields, 6),
		LeftPatchIds:       repeatedObjectIds(fields, 7),
		RightPatchIds:      repeatedObjectIds(fields, 8),
		ResolutionPatchIds: repeatedObjectIds(fields, 9),
		Status:             ConflictStatus(firstVarint(fields, 10)),
		CreatedAtMs:        int64(firstVarint(fields, 11)),
	}
	if raw, ok := firstBytes(fields, 1); ok {
		copy(c.Id[:], raw)
	}
	if raw, ok := firstBytes(fields, 2); ok {
		copy(c.BaseRevision[:], raw)
	}
	if raw, ok := firstBytes(fields, 3); ok {
		copy(c.LeftRevision[:], raw)
	}
	if raw, ok := firstBytes(fields, 4); ok {
		copy(c.RightRevision[:], raw)
	}
	return c, nil
}
