package sync

import (
	"strings"

	"github.com/clawvcs/claw/objects"
)

// Filter narrows a fetch to a partial clone's subset of interest (spec
// §4.8). The zero value matches everything.
type Filter struct {
	PathPrefixes []string
	CodecIds     []string
	TimeRangeMs  *[2]int64 // [start, end] inclusive, nil means unbounded

	// MaxDepth and MaxBytes bound traversal cost rather than per-object
	// inclusion: spec §4.8 names them as filter fields without pinning
	// down their cutoff semantics, so this core treats them as fetch-time
	// budgets (see Fetch in negotiation.go) rather than a per-object
	// predicate — recorded as an explicit design decision.
	MaxDepth *int
	MaxBytes *int64

	// PeerHave, when set, is the requesting peer's HaveDigest: a
	// probabilistic encoding of objects it may already hold, handed over
	// in place of an explicit have list when that list would be too
	// large to enumerate. Fetch skips an object it reports "maybe
	// present", like one already covered by reachable(have), and counts
	// it in FetchResult.Dropped — an
	// opt-in, lossy pre-filter layered on top of the exact check, never
	// a replacement for it.
	PeerHave *HaveDigest
}

// Include reports whether obj passes the filter, per spec §4.8's
// per-kind rules: Patch is gated on path prefix and codec id, Revision
// on its creation time, and every other kind is always included.
func (f Filter) Include(obj objects.Object) bool {
	switch o := obj.(type) {
	case *objects.Patch:
		return f.includePatch(o)
	case *objects.Revision:
		return f.includeRevision(o)
	default:
		return true
	}
}

func (f Filter) includePatch(p *objects.Patch) bool {
	if len(f.PathPrefixes) > 0 {
		matched := false
		for _, prefix := range f.PathPrefixes {
			if strings.HasPrefix(p.TargetPath, prefix) {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	if len(f.CodecIds) > 0 {
		matched := false
		for _, c := range f.CodecIds {
			if p.CodecId == c {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (f Filter) includeRevision(r *objects.Revision) bool {
	if f.TimeRangeMs == nil {
		return true
	}
	return r.TimestampMs >= f.TimeRangeMs[0] && r.TimestampMs <= f.TimeRangeMs[1]
}
