package merge

import (
	"path"
	"sort"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/codec"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
)

// Result is the outcome of a Merge call: the new merge revision
// (always produced, even when conflicts remain open, so work in
// progress is never discarded), every Conflict object the codecs
// couldn't resolve automatically, and the common ancestor the merge
// reconciled against (spec §4.6).
type Result struct {
	Revision  id.ObjectId
	Conflicts []*objects.Conflict
	LCA       id.ObjectId
}

// treeLoaderAdapter lets treediff.Diff recurse into subtrees without
// depending on *store.Store directly.
type treeLoaderAdapter struct{ s *store.Store }

func (a treeLoaderAdapter) LoadTree(oid id.ObjectId) (*objects.Tree, error) {
	return loadTree(a.s, oid)
}

// Merge reconciles ours and theirs against their lowest common
// ancestor per spec §4.6:
//
//  1. locate the LCA (findLCA).
//  2. walk each branch's mainline history back to the LCA, collecting
//     the patches it contributed (collectBranchPatches).
//  3. group each branch's patches by (target_path, codec_id).
//  4. for every path either side touched: if only one side has a
//     group, take it verbatim; if both do, attempt a commutation-based
//     rebase of theirs past ours, falling back to the codec's Merge3
//     on commute failure, and emitting an open Conflict when Merge3
//     can't reconcile either.
//  5. rebuild the merged tree from the LCA tree plus every resolved
//     group's resulting content, unless any path is left conflicted,
//     in which case the merge keeps ours' tree wholesale.
//  6. store a Revision with both tips as parents, the merged patch ids,
//     and the tree from step 5.
func Merge(s *store.Store, codecs *codec.Registry, gen *id.Generator, oursRevId, theirsRevId id.ObjectId, author, message string, nowMs int64) (*Result, error) {
	lcaId, err := findLCA(s, oursRevId, theirsRevId)
	if err != nil {
		return nil, err
	}

	lcaRev, err := loadRevision(s, lcaId)
	if err != nil {
		return nil, err
	}
	oursRev, err := loadRevision(s, oursRevId)
	if err != nil {
		return nil, err
	}

	oursGroups, err := collectBranchPatches(s, codecs, oursRevId, lcaId)
	if err != nil {
		return nil, err
	}
	theirsGroups, err := collectBranchPatches(s, codecs, theirsRevId, lcaId)
	if err != nil {
		return nil, err
	}

	lcaTree, err := loadTree(s, lcaRev.Tree)
	if err != nil {
		return nil, err
	}
	lcaLeaves, err := flattenTree(s, lcaTree)
	if err != nil {
		return nil, err
	}
	oursTree, err := loadTree(s, oursRev.Tree)
	if err != nil {
		return nil, err
	}
	oursLeaves, err := flattenTree(s, oursTree)
	if err != nil {
		return nil, err
	}
	theirsRevObj, err := loadRevision(s, theirsRevId)
	if err != nil {
		return nil, err
	}
	theirsTree, err := loadTree(s, theirsRevObj.Tree)
	if err != nil {
		return nil, err
	}
	theirsLeaves, err := flattenTree(s, theirsTree)
	if err != nil {
		return nil, err
	}

	keys := unionKeys(oursGroups, theirsGroups)

	var outcomes []groupOutcome
	var conflicts []*objects.Conflict
	for _, key := range keys {
		baseContent, err := loadBlobContent(s, lcaLeaves[key.Path].Target)
		if err != nil {
			return nil, err
		}

		outcome, conflict, err := mergeGroup(s, codecs, gen, key, oursGroups[key], theirsGroups[key], baseContent, lcaId, oursRevId, theirsRevId, nowMs)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			conflicts = append(conflicts, conflict)
			continue
		}
		outcome.mode = entryMode(oursLeaves, theirsLeaves, lcaLeaves, key.Path)
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].FilePath < conflicts[j].FilePath
	})

	var mergedTreeId id.ObjectId
	var patchIds []id.ObjectId
	if len(conflicts) > 0 {
		// spec §4.6 step 6: an unresolved conflict means the merge
		// revision's tree is L's tree, not a best-effort mix.
		mergedTreeId = oursRev.Tree
		for _, o := range outcomes {
			patchIds = append(patchIds, o.patchIds...)
		}
	} else {
		leaves := map[string]objects.TreeEntry{}
		for p, e := range lcaLeaves {
			leaves[p] = e
		}
		for _, o := range outcomes {
			patchIds = append(patchIds, o.patchIds...)
			if o.deleted {
				delete(leaves, o.key.Path)
				continue
			}
			blobId, err := blobIdOf(s, o.content)
			if err != nil {
				return nil, err
			}
			leaves[o.key.Path] = objects.TreeEntry{
				Name:    path.Base(o.key.Path),
				Mode:    o.mode,
				Target:  blobId,
				CodecId: o.key.CodecId,
			}
		}
		mergedTreeId, err = buildTree(s, leaves)
		if err != nil {
			return nil, err
		}
	}

	merged := &objects.Revision{
		Parents:     []id.ObjectId{oursRevId, theirsRevId},
		Patches:     patchIds,
		Tree:        mergedTreeId,
		Author:      author,
		TimestampMs: nowMs,
		Summary:     message,
	}
	mergedId, err := s.Put(merged)
	if err != nil {
		return nil, err
	}

	return &Result{Revision: mergedId, Conflicts: conflicts, LCA: lcaId}, nil
}

// groupOutcome is one (target_path, codec_id) group's resolution:
// either a deletion, or the merged content to write at key.Path, plus
// the patch ids that contributed to it.
type groupOutcome struct {
	key      pathKey
	patchIds []id.ObjectId
	content  []byte
	mode     objects.Mode
	deleted  bool
}

// mergeGroup resolves one path both branches' collected patches may
// have touched, per spec §4.6 step 4. left/right may each be empty
// (the other side didn't touch this path at all).
func mergeGroup(s *store.Store, codecs *codec.Registry, gen *id.Generator, key pathKey, left, right []loadedPatch, baseContent []byte, lcaId, oursRevId, theirsRevId id.ObjectId, nowMs int64) (groupOutcome, *objects.Conflict, error) {
	if len(right) == 0 || len(left) == 0 {
		cd, err := codecs.ForId(key.CodecId)
		if err != nil {
			return groupOutcome{}, nil, err
		}
		chain := left
		if len(right) > 0 {
			chain = right
		}
		content, err := chainFinalContent(s, cd, baseContent, chain)
		if err != nil {
			return groupOutcome{}, nil, err
		}
		return groupOutcome{key: key, patchIds: patchChainIds(chain), content: content, deleted: isDeleteChain(chain)}, nil, nil
	}

	leftDeleted := isDeleteChain(left)
	rightDeleted := isDeleteChain(right)
	if leftDeleted && rightDeleted {
		return groupOutcome{key: key, patchIds: append(patchChainIds(left), patchChainIds(right)...), deleted: true}, nil, nil
	}
	if leftDeleted != rightDeleted {
		conflict, err := makeConflict(gen, lcaId, oursRevId, theirsRevId, key, left, right, nowMs)
		return groupOutcome{}, conflict, err
	}

	cd, err := codecs.ForId(key.CodecId)
	if err != nil {
		return groupOutcome{}, nil, err
	}

	leftFinal, err := chainFinalContent(s, cd, baseContent, left)
	if err != nil {
		return groupOutcome{}, nil, err
	}
	rightFinal, err := chainFinalContent(s, cd, baseContent, right)
	if err != nil {
		return groupOutcome{}, nil, err
	}
	if string(leftFinal) == string(rightFinal) {
		return groupOutcome{key: key, patchIds: patchChainIds(left), content: leftFinal}, nil, nil
	}

	leftOps, err := cd.Diff(baseContent, leftFinal)
	if err != nil {
		return groupOutcome{}, nil, err
	}
	rightOps, err := cd.Diff(baseContent, rightFinal)
	if err != nil {
		return groupOutcome{}, nil, err
	}

	// Step 4: attempt a commutation-based rebase of theirs past ours
	// first. Only when the codec can't vouch the two op-groups are
	// independent do we fall back to its three-way Merge3.
	var merged []byte
	rebased, commutes, err := cd.Commute(baseContent, leftOps, rightOps)
	if err != nil {
		return groupOutcome{}, nil, err
	}
	if commutes {
		merged, err = cd.Apply(leftFinal, rebased)
		if err != nil {
			return groupOutcome{}, nil, err
		}
	} else {
		var hasConflict bool
		merged, hasConflict, err = cd.Merge3(baseContent, leftFinal, rightFinal)
		if err != nil {
			return groupOutcome{}, nil, err
		}
		if hasConflict {
			conflict, err := makeConflict(gen, lcaId, oursRevId, theirsRevId, key, left, right, nowMs)
			return groupOutcome{}, conflict, err
		}
	}

	patchId, err := storeReconcilingPatch(s, key, baseContent, merged)
	if err != nil {
		return groupOutcome{}, nil, err
	}
	return groupOutcome{key: key, patchIds: []id.ObjectId{patchId}, content: merged}, nil, nil
}

// storeReconcilingPatch stores a single new Patch object representing
// a successfully merged group's net change against base, the "single
// reconciling Patch" spec §4.6 step 4 calls for on both the commute
// and Merge3 paths (base==merged content collapses to a no-op patch).
func storeReconcilingPatch(s *store.Store, key pathKey, base, merged []byte) (id.ObjectId, error) {
	baseId, err := blobIdOf(s, base)
	if err != nil {
		return id.ObjectId{}, err
	}
	mergedId, err := blobIdOf(s, merged)
	if err != nil {
		return id.ObjectId{}, err
	}
	p := &objects.Patch{
		TargetPath:   key.Path,
		CodecId:      key.CodecId,
		BaseObject:   baseId,
		ResultObject: mergedId,
	}
	return s.Put(p)
}

func makeConflict(gen *id.Generator, lcaId, oursRevId, theirsRevId id.ObjectId, key pathKey, left, right []loadedPatch, nowMs int64) (*objects.Conflict, error) {
	cid, err := gen.Next()
	if err != nil {
		return nil, err
	}
	return &objects.Conflict{
		Id:            id.ConflictId(cid),
		BaseRevision:  lcaId,
		LeftRevision:  oursRevId,
		RightRevision: theirsRevId,
		FilePath:      key.Path,
		CodecId:       key.CodecId,
		LeftPatchIds:  patchChainIds(left),
		RightPatchIds: patchChainIds(right),
		Status:        objects.ConflictOpen,
		CreatedAtMs:   nowMs,
	}, nil
}

func unionKeys(a, b map[pathKey][]loadedPatch) []pathKey {
	seen := map[pathKey]bool{}
	var out []pathKey
	for k := range a {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// entryMode picks the Mode a merged path should carry: ours' and
// theirs' flattened leaves take priority over the LCA's, since a
// changed path's mode comes from whichever side(s) still have it.
func entryMode(oursLeaves, theirsLeaves, lcaLeaves map[string]objects.TreeEntry, p string) objects.Mode {
	if e, ok := oursLeaves[p]; ok {
		return e.Mode
	}
	if e, ok := theirsLeaves[p]; ok {
		return e.Mode
	}
	return lcaLeaves[p].Mode
}

func blobIdOf(s *store.Store, content []byte) (id.ObjectId, error) {
	if content == nil {
		return id.ObjectId{}, nil
	}
	return s.Put(&objects.Blob{Data: content})
}

// loadBlobContent returns a Blob's content, or nil if oid is the zero
// ObjectId (meaning "didn't exist on that side").
func loadBlobContent(s *store.Store, oid id.ObjectId) ([]byte, error) {
	if oid.Zero() {
		return nil, nil
	}
	obj, err := s.Get(oid)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(*objects.Blob)
	if !ok {
		return nil, clawerr.ErrDeserialization
	}
	return b.Data, nil
}
