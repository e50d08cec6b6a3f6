package objects

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Policy gates what a revision needs before it is considered mergeable
// or publishable: a visibility level, the checks a capsule's evidence
// must satisfy, reviewer/path/quarantine constraints, and an optional
// minimum trust score (spec §3, §4.10; trust-score and ACL extensions
// beyond the bare threshold are explicitly out of scope of the core).
type Policy struct {
	PolicyId         string
	RequiredChecks   []string
	RequiredReviewers []string
	SensitivePaths   []string
	QuarantineLane   string
	MinTrustScore    *float64 // nil means "no threshold"
	Visibility       Visibility
}

func (p *Policy) Kind() Kind { return KindPolicy }

func (p *Policy) Encode() []byte {
	var out []byte
	out = appendStringField(out, 1, p.PolicyId)
	out = appendStringsField(out, 2, p.RequiredChecks)
	out = appendStringsField(out, 3, p.RequiredReviewers)
	out = appendStringsField(out, 4, p.SensitivePaths)
	out = appendStringField(out, 5, p.QuarantineLane)
	out = appendVarintField(out, 6, uint64(p.Visibility))
	if p.MinTrustScore != nil {
		// appendVarintField omits zero values, which would silently drop a
		// genuine 0.0 threshold; write the field directly since presence
		// itself is meaningful here.
		out = protowire.AppendTag(out, 7, protowire.VarintType)
		out = protowire.AppendVarint(out, math.Float64bits(*p.MinTrustScore))
	}
	return out
}

func decodePolicy(payload []byte) (*Policy, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	p := &Policy{
		PolicyId:          firstString(fields, 1),
		RequiredChecks:    repeatedStrings(fields, 2),
		RequiredReviewers: repeatedStrings(fields, 3),
		SensitivePaths:    repeatedStrings(fields, 4),
		QuarantineLane:    firstString(fields, 5),
		Visibility:        Visibility(firstVarint(fields, 6)),
	}
	if bits, ok := firstVarintOk(fields, 7); ok {
		v := math.Float64frombits(bits)
		p.MinTrustScore = &v
	}
	return p, nil
}
