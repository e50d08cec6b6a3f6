// Package sync implements DAG reachability, the ancestry test, the
// partial-clone filter, and the client-driven sync negotiation
// operations that move objects and refs between two stores (spec
// §4.8, §4.9). It follows the teacher's tolerant-missing-blob idiom
// (massifs/blobnotfounderr.go's WrapBlobNotFound/IsBlobNotFound)
// generalized from "a massif blob may be absent from this tenant's
// storage account" to "an object may be absent from a partial clone."
package sync

import (
	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
	"go.uber.org/zap"
)

// edges returns the ObjectIds obj directly depends on, per the
// dependency graph spec §4.8 enumerates per kind. Kinds with no
// outgoing edges (Blob, Intent, Policy, Workstream) return nil.
func edges(obj objects.Object) []id.ObjectId {
	switch o := obj.(type) {
	case *objects.Revision:
		out := append([]id.ObjectId{}, o.Parents...)
		out = append(out, o.Patches...)
		out = append(out, o.Tree, o.SnapshotBase, o.CapsuleId, o.ChangeId)
		return out
	case *objects.Tree:
		out := make([]id.ObjectId, 0, len(o.Entries))
		for _, e := range o.Entries {
			out = append(out, e.Target)
		}
		return out
	case *objects.Patch:
		return []id.ObjectId{o.BaseObject, o.ResultObject}
	case *objects.Snapshot:
		return []id.ObjectId{o.Tree, o.Revision}
	case *objects.Capsule:
		return []id.ObjectId{o.Public.RevisionId}
	case *objects.Change:
		return []id.ObjectId{o.Revision}
	case *objects.Conflict:
		out := []id.ObjectId{o.BaseRevision, o.LeftRevision, o.RightRevision}
		out = append(out, o.LeftPatchIds...)
		out = append(out, o.RightPatchIds...)
		out = append(out, o.ResolutionPatchIds...)
		return out
	case *objects.RefLog:
		return []id.ObjectId{o.Old, o.New}
	default:
		return nil
	}
}

// Reachable performs a BFS from heads over every dependency edge,
// logging and skipping any referent the store doesn't have instead of
// failing: a partial clone intentionally holds only a subset of the
// full object graph, and reachability over that subset must still
// terminate (spec §4.8).
func Reachable(s *store.Store, log clawlog.Logger, heads []id.ObjectId) (map[id.ObjectId]bool, error) {
	if log == nil {
		log = clawlog.NewNop()
	}
	seen := map[id.ObjectId]bool{}
	missing := map[id.ObjectId]bool{}
	queue := append([]id.ObjectId{}, heads...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.Zero() || seen[cur] || missing[cur] {
			continue
		}
		seen[cur] = true

		obj, err := s.Get(cur)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				log.Debug("reachable: missing referent, skipping", zap.String("object_id", cur.String()))
				delete(seen, cur)
				missing[cur] = true
				continue
			}
			return nil, err
		}
		for _, e := range edges(obj) {
			if !e.Zero() && !seen[e] {
				queue = append(queue, e)
			}
		}
	}
	return seen, nil
}

// OrderedReachable returns the same set Reachable(heads) would, but as
// a post-order DFS over the dependency edges so that every object
// appears after everything it depends on — the order transports MUST
// send objects in, so a receiver validating referents on insert never
// sees a child before its parents (spec §4.8).
func OrderedReachable(s *store.Store, log clawlog.Logger, heads []id.ObjectId) ([]id.ObjectId, error) {
	if log == nil {
		log = clawlog.NewNop()
	}
	visited := map[id.ObjectId]bool{}
	var order []id.ObjectId

	var visit func(oid id.ObjectId) error
	visit = func(oid id.ObjectId) error {
		if oid.Zero() || visited[oid] {
			return nil
		}
		visited[oid] = true

		obj, err := s.Get(oid)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				log.Debug("ordered_reachable: missing referent, skipping", zap.String("object_id", oid.String()))
				return nil
			}
			return err
		}
		for _, e := range edges(obj) {
			if err := visit(e); err != nil {
				return err
			}
		}
		order = append(order, oid)
		return nil
	}

	for _, h := range heads {
		if err := visit(h); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// IsAncestor performs a BFS backward from d over Revision.Parents,
// true iff a is encountered. An id is its own ancestor (spec §4.8).
// Unlike store.isAncestor, this traversal tolerates missing revisions
// in the walked history rather than failing closed, since sync
// operations routinely reason about ancestry across partial clones.
func IsAncestor(s *store.Store, a, d id.ObjectId) (bool, error) {
	if a == d {
		return true, nil
	}
	seen := map[id.ObjectId]bool{}
	queue := []id.ObjectId{d}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.Zero() || seen[cur] {
			continue
		}
		seen[cur] = true

		obj, err := s.Get(cur)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				continue
			}
			return false, err
		}
		rev, ok := obj.(*objects.Revision)
		if !ok {
			continue
		}
		for _, p := range rev.Parents {
			if p == a {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}
