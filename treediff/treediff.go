// Package treediff computes structural differences between two Tree
// objects: which paths were added, deleted, modified, or changed kind
// entirely (spec §4.5). It is the recursive-directory-walk companion
// to codec's per-file content diffing, and feeds the patch collection
// step of the merge package.
package treediff

import (
	"path"

	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
)

// ChangeKind categorizes one path's difference between two trees.
type ChangeKind byte

const (
	Added ChangeKind = iota
	Deleted
	Modified
	TypeChanged // e.g. a file replaced by a directory at the same path
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case TypeChanged:
		return "type-changed"
	default:
		return "unknown"
	}
}

// Change is one path-level difference between a base and target tree.
type Change struct {
	Path      string
	Kind      ChangeKind
	OldTarget id.ObjectId // zero for Added
	NewTarget id.ObjectId // zero for Deleted
	OldMode   objects.Mode
	NewMode   objects.Mode
	CodecId   string // the target entry's codec hint, if any
}

// TreeLoader resolves a Tree object by id; treediff needs this to
// recurse into subdirectories without depending on the store package
// directly (keeping treediff usable against any object source,
// including a partial clone's local cache).
type TreeLoader interface {
	LoadTree(oid id.ObjectId) (*objects.Tree, error)
}

// Diff walks base and target (both may be nil, meaning an empty tree)
// and returns every path-level Change between them, recursing into
// subdirectories that exist on both sides.
func Diff(loader TreeLoader, base, target *objects.Tree) ([]Change, error) {
	var changes []Change
	if err := diffInto(loader, "", base, target, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func entryMap(t *objects.Tree) map[string]objects.TreeEntry {
	m := map[string]objects.TreeEntry{}
	if t == nil {
		return m
	}
	for _, e := range t.Entries {
		m[e.Name] = e
	}
	return m
}

func diffInto(loader TreeLoader, prefix string, base, target *objects.Tree, out *[]Change) error {
	baseEntries := entryMap(base)
	targetEntries := entryMap(target)

	for name, be := range baseEntries {
		fullPath := path.Join(prefix, name)
		te, inTarget := targetEntries[name]
		if !inTarget {
			*out = append(*out, Change{
				Path: fullPath, Kind: Deleted,
				OldTarget: be.Target, OldMode: be.Mode,
			})
			continue
		}
		if err := diffEntry(loader, fullPath, be, te, out); err != nil {
			return err
		}
	}
	for name, te := range targetEntries {
		if _, inBase := baseEntries[name]; inBase {
			continue
		}
		fullPath := path.Join(prefix, name)
		*out = append(*out, Change{
			Path: fullPath, Kind: Added,
			NewTarget: te.Target, NewMode: te.Mode, CodecId: te.CodecId,
		})
	}
	return nil
}

func diffEntry(loader TreeLoader, fullPath string, be, te objects.TreeEntry, out *[]Change) error {
	beDir := be.Mode == objects.ModeDirectory
	teDir := te.Mode == objects.ModeDirectory

	switch {
	case beDir && teDir:
		if be.Target == te.Target {
			return nil
		}
		baseSub, err := loader.LoadTree(be.Target)
		if err != nil {
			return err
		}
		targetSub, err := loader.LoadTree(te.Target)
		if err != nil {
			return err
		}
		return diffInto(loader, fullPath, baseSub, targetSub, out)
	case beDir != teDir:
		*out = append(*out, Change{
			Path: fullPath, Kind: TypeChanged,
			OldTarget: be.Target, OldMode: be.Mode,
			NewTarget: te.Target, NewMode: te.Mode, CodecId: te.CodecId,
		})
		return nil
	default:
		if be.Target == te.Target && be.Mode == te.Mode {
			return nil
		}
		*out = append(*out, Change{
			Path: fullPath, Kind: Modified,
			OldTarget: be.Target, OldMode: be.Mode,
			NewTarget: te.Target, NewMode: te.Mode, CodecId: te.CodecId,
		})
		return nil
	}
}
