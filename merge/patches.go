package merge

import (
	"path"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/codec"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
	"github.com/clawvcs/claw/treediff"
)

// pathKey groups a branch's collected patches the way spec §4.6 step 3
// does: by the (target_path, codec_id) pair a patch names.
type pathKey struct {
	Path    string
	CodecId string
}

// loadedPatch pairs a stored Patch's id with its decoded body, so a
// branch's patch chain can be both replayed and referenced (a merge
// Revision's Patches field, a Conflict's *_patch_ids) without a second
// store round trip.
type loadedPatch struct {
	Id   id.ObjectId
	Data *objects.Patch
}

// collectBranchPatches walks tip's mainline history down to (excluding)
// lca, oldest first, and groups every patch each revision contributed
// by path and codec (spec §4.6 steps 2-3). Revisions that predate
// explicit patch tracking (Patches is empty) have their tree diff
// against their parent turned into equivalent Patch objects on the
// fly, via deriveRevisionPatches, so older history merges the same way
// newer patch-carrying history does.
func collectBranchPatches(s *store.Store, codecs *codec.Registry, tip, lca id.ObjectId) (map[pathKey][]loadedPatch, error) {
	revs, err := mainlineChain(s, tip, lca)
	if err != nil {
		return nil, err
	}

	grouped := map[pathKey][]loadedPatch{}
	for _, rev := range revs {
		patches, err := revisionPatches(s, codecs, rev)
		if err != nil {
			return nil, err
		}
		for _, lp := range patches {
			key := pathKey{Path: lp.Data.TargetPath, CodecId: lp.Data.CodecId}
			grouped[key] = append(grouped[key], lp)
		}
	}
	return grouped, nil
}

// mainlineChain returns every revision from tip down to, but not
// including, lca, oldest first, following each revision's first parent. A merge
// revision's non-first parents are not walked: for the purpose of
// collecting "what did this branch add since the merge base," the
// first parent is the branch's own continuation and is all step 2
// needs.
func mainlineChain(s *store.Store, tip, lca id.ObjectId) ([]*objects.Revision, error) {
	var chain []*objects.Revision
	cur := tip
	for cur != lca {
		rev, err := loadRevision(s, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rev)
		if len(rev.Parents) == 0 {
			break
		}
		cur = rev.Parents[0]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// revisionPatches returns rev's contribution to its branch's patch
// chain: the stored Patch objects it names directly, or, for a
// revision with no recorded Patches, the patches equivalent to its
// tree diff against its first parent.
func revisionPatches(s *store.Store, codecs *codec.Registry, rev *objects.Revision) ([]loadedPatch, error) {
	if len(rev.Patches) > 0 {
		out := make([]loadedPatch, 0, len(rev.Patches))
		for _, pid := range rev.Patches {
			obj, err := s.Get(pid)
			if err != nil {
				return nil, err
			}
			p, ok := obj.(*objects.Patch)
			if !ok {
				return nil, clawerr.ErrDeserialization
			}
			out = append(out, loadedPatch{Id: pid, Data: p})
		}
		return out, nil
	}
	if len(rev.Parents) == 0 {
		return nil, nil
	}
	parentRev, err := loadRevision(s, rev.Parents[0])
	if err != nil {
		return nil, err
	}
	return deriveRevisionPatches(s, codecs, parentRev.Tree, rev.Tree)
}

// deriveRevisionPatches diffs baseTree against headTree and stores one
// Patch object per changed path, the same content a commit operation
// that populated Revision.Patches up front would have stored.
func deriveRevisionPatches(s *store.Store, codecs *codec.Registry, baseTreeId, headTreeId id.ObjectId) ([]loadedPatch, error) {
	baseTree, err := loadTree(s, baseTreeId)
	if err != nil {
		return nil, err
	}
	headTree, err := loadTree(s, headTreeId)
	if err != nil {
		return nil, err
	}
	changes, err := treediff.Diff(treeLoaderAdapter{s}, baseTree, headTree)
	if err != nil {
		return nil, err
	}

	out := make([]loadedPatch, 0, len(changes))
	for _, c := range changes {
		var lp loadedPatch
		var err error
		switch c.Kind {
		case treediff.Deleted:
			lp, err = storeDeletePatch(s, codecs, c)
		default: // Added, Modified, TypeChanged
			lp, err = storeContentPatch(s, codecs, c)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, nil
}

func storeDeletePatch(s *store.Store, codecs *codec.Registry, c treediff.Change) (loadedPatch, error) {
	cd, err := resolveCodec(codecs, c.CodecId, c.Path)
	if err != nil {
		return loadedPatch{}, err
	}
	p := &objects.Patch{
		TargetPath: c.Path,
		CodecId:    cd.Id(),
		BaseObject: c.OldTarget,
	}
	pid, err := s.Put(p)
	if err != nil {
		return loadedPatch{}, err
	}
	return loadedPatch{Id: pid, Data: p}, nil
}

func storeContentPatch(s *store.Store, codecs *codec.Registry, c treediff.Change) (loadedPatch, error) {
	codecId := c.CodecId
	cd, err := resolveCodec(codecs, codecId, c.Path)
	if err != nil {
		return loadedPatch{}, err
	}
	baseContent, err := loadBlobContent(s, c.OldTarget)
	if err != nil {
		return loadedPatch{}, err
	}
	headContent, err := loadBlobContent(s, c.NewTarget)
	if err != nil {
		return loadedPatch{}, err
	}
	ops, err := cd.Diff(baseContent, headContent)
	if err != nil {
		return loadedPatch{}, err
	}
	p := &objects.Patch{
		TargetPath:   c.Path,
		CodecId:      cd.Id(),
		BaseObject:   c.OldTarget,
		ResultObject: c.NewTarget,
		Ops:          ops,
	}
	pid, err := s.Put(p)
	if err != nil {
		return loadedPatch{}, err
	}
	return loadedPatch{Id: pid, Data: p}, nil
}

func resolveCodec(codecs *codec.Registry, codecId, p string) (codec.Codec, error) {
	if codecId != "" {
		return codecs.ForId(codecId)
	}
	return codecs.ForExtension(path.Ext(p)), nil
}

// isDeleteChain reports whether a patch chain's last entry deletes its
// path (no result content, no replacement ops).
func isDeleteChain(chain []loadedPatch) bool {
	if len(chain) == 0 {
		return false
	}
	last := chain[len(chain)-1].Data
	return last.ResultObject.Zero() && len(last.Ops) == 0
}

// chainFinalContent replays chain against base and returns the
// resulting bytes, or nil if the chain ends in a deletion. A patch
// that recorded its ResultObject is read directly rather than
// replayed, since it already names the exact content the patch
// produced.
func chainFinalContent(s *store.Store, cd codec.Codec, base []byte, chain []loadedPatch) ([]byte, error) {
	cur := base
	for _, lp := range chain {
		p := lp.Data
		switch {
		case !p.ResultObject.Zero():
			content, err := loadBlobContent(s, p.ResultObject)
			if err != nil {
				return nil, err
			}
			cur = content
		case len(p.Ops) == 0:
			cur = nil
		default:
			next, err := cd.Apply(cur, p.Ops)
			if err != nil {
				return nil, err
			}
			cur = next
		}
	}
	return cur, nil
}

// patchChainIds extracts the stored ids from a patch chain, in order.
func patchChainIds(chain []loadedPatch) []id.ObjectId {
	ids := make([]id.ObjectId, len(chain))
	for i, lp := range chain {
		ids[i] = lp.Id
	}
	return ids
}
