package objects

import "github.com/clawvcs/claw/id"

// Revision is a DAG commit: a tree snapshot (or, for a patches-only
// commit with nothing materialized yet, just the patches) with zero or
// more parents — zero for the initial revision, two or more after a
// merge — plus the provenance fields the merge/capsule/policy layers
// key off of (spec §3, §4.6, §4.10).
type Revision struct {
	Parents []id.ObjectId
	Patches []id.ObjectId

	Tree         id.ObjectId // zero: no materialized tree (patches-only commit)
	SnapshotBase id.ObjectId // zero: not snapshot-accelerated
	CapsuleId    id.ObjectId // zero: no capsule attached yet
	ChangeId     id.ObjectId // zero: not associated with a change

	Author      string
	TimestampMs int64
	Summary     string

	PolicyEvidence []Evidence
}

func (r *Revision) Kind() Kind { return KindRevision }

func (r *Revision) Encode() []byte {
	var out []byte
	out = appendObjectIdsField(out, 1, r.Parents)
	out = appendObjectIdsField(out, 2, r.Patches)
	out = appendObjectIdField(out, 3, &r.Tree)
	out = appendObjectIdField(out, 4, &r.SnapshotBase)
	out = appendObjectIdField(out, 5, &r.CapsuleId)
	out = appendObjectIdField(out, 6, &r.ChangeId)
	out = appendStringField(out, 7, r.Author)
	out = appendVarintField(out, 8, uint64(r.TimestampMs))
	out = appendStringField(out, 9, r.Summary)
	for _, e := range r.PolicyEvidence {
		var eb []byte
		eb = appendStringField(eb, 1, e.CheckName)
		if e.Passed {
			eb = appendVarintField(eb, 2, 1)
		}
		eb = appendStringField(eb, 3, e.Detail)
		out = appendMessageField(out, 10, eb)
	}
	return out
}

func decodeRevision(payload []byte) (*Revision, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	r := &Revision{
		Parents:     repeatedObjectIds(fields, 1),
		Patches:     repeatedObjectIds(fields, 2),
		Author:      firstString(fields, 7),
		TimestampMs: int64(firstVarint(fields, 8)),
		Summary:     firstString(fields, 9),
	}
	if raw, ok := firstBytes(fields, 3); ok {
		copy(r.Tree[:], raw)
	}
	if raw, ok := firstBytes(fields, 4); ok {
		copy(r.SnapshotBase[:], raw)
	}
	if raw, ok := firstBytes(fields, 5); ok {
		copy(r.CapsuleId[:], raw)
	}
	if raw, ok := firstBytes(fields, 6); ok {
		copy(r.ChangeId[:], raw)
	}
	for _, em := range fieldsFor(fields, 10) {
		ef, err := parseFields(em.Raw)
		if err != nil {
			return nil, err
		}
		r.PolicyEvidence = append(r.PolicyEvidence, Evidence{
			CheckName: firstString(ef, 1),
			Passed:    firstVarint(ef, 2) != 0,
			Detail:    firstString(ef, 3),
		})
	}
	return r, nil
}
