// Package merge implements DAG reconciliation: locating the lowest
// common ancestor of two revisions, collecting per-path patches
// against it, resolving what each codec's commute/merge3 operations
// can resolve automatically, and emitting Conflict objects for what
// they can't (spec §4.6).
package merge

import (
	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
)

// findLCA walks backward from a and b one generation at a time,
// alternating frontiers, until a revision id visited from one side is
// already visited from the other — the same backward-BFS idea the
// teacher's peak-stack/MMR ancestor-walk code uses for bottom-up
// traversal, applied to a parent-pointer DAG instead of an MMR's
// implicit binary structure.
//
// This returns *a* common ancestor, not necessarily a unique lowest
// one in the strict multiple-LCA sense a general DAG can have; for the
// single-parent/two-parent merge revision shapes this engine produces,
// the first common id the alternating frontiers meet at is the one
// both sides' merge bases actually want.
func findLCA(s *store.Store, a, b id.ObjectId) (id.ObjectId, error) {
	if a == b {
		return a, nil
	}

	visitedA := map[id.ObjectId]bool{a: true}
	visitedB := map[id.ObjectId]bool{b: true}
	frontierA := []id.ObjectId{a}
	frontierB := []id.ObjectId{b}

	for len(frontierA) > 0 || len(frontierB) > 0 {
		next, ok, newFrontierA, err := step(s, frontierA, visitedA, visitedB)
		if err != nil {
			return id.ObjectId{}, err
		}
		if ok {
			return next, nil
		}
		frontierA = newFrontierA

		next, ok, newFrontierB, err := step(s, frontierB, visitedB, visitedA)
		if err != nil {
			return id.ObjectId{}, err
		}
		if ok {
			return next, nil
		}
		frontierB = newFrontierB
	}
	return id.ObjectId{}, clawerr.ErrNoCommonAncestor
}

// step advances frontier by one generation: every newly discovered
// parent is checked against visitedOther (returning it immediately as
// the meeting point if found there) and otherwise marked in
// visitedSelf and added to the next frontier.
func step(s *store.Store, frontier []id.ObjectId, visitedSelf, visitedOther map[id.ObjectId]bool) (id.ObjectId, bool, []id.ObjectId, error) {
	var next []id.ObjectId
	for _, cur := range frontier {
		rev, err := loadRevision(s, cur)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				continue
			}
			return id.ObjectId{}, false, nil, err
		}
		for _, p := range rev.Parents {
			if visitedOther[p] {
				return p, true, nil, nil
			}
			if !visitedSelf[p] {
				visitedSelf[p] = true
				next = append(next, p)
			}
		}
	}
	return id.ObjectId{}, false, next, nil
}

func loadRevision(s *store.Store, oid id.ObjectId) (*objects.Revision, error) {
	obj, err := s.Get(oid)
	if err != nil {
		return nil, err
	}
	rev, ok := obj.(*objects.Revision)
	if !ok {
		return nil, clawerr.ErrDeserialization
	}
	return rev, nil
}
