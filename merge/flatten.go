package merge

import (
	"path"
	"sort"
	"strings"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
)

// flattenTree walks a whole Tree recursively and returns every
// non-directory entry keyed by its full slash-joined path. Merging
// works over this flat leaf view rather than nested Trees so that a
// change on one path never forces reconsidering sibling paths that
// didn't change (spec §4.6).
func flattenTree(s *store.Store, root *objects.Tree) (map[string]objects.TreeEntry, error) {
	out := map[string]objects.TreeEntry{}
	if root == nil {
		return out, nil
	}
	if err := flattenInto(s, "", root, out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(s *store.Store, prefix string, t *objects.Tree, out map[string]objects.TreeEntry) error {
	for _, e := range t.Entries {
		fullPath := path.Join(prefix, e.Name)
		if e.Mode != objects.ModeDirectory {
			out[fullPath] = e
			continue
		}
		sub, err := loadTree(s, e.Target)
		if err != nil {
			return err
		}
		if err := flattenInto(s, fullPath, sub, out); err != nil {
			return err
		}
	}
	return nil
}

func loadTree(s *store.Store, oid id.ObjectId) (*objects.Tree, error) {
	obj, err := s.Get(oid)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*objects.Tree)
	if !ok {
		return nil, clawerr.ErrDeserialization
	}
	return t, nil
}

// buildTree reconstructs and stores a nested Tree hierarchy from a flat
// leaf-entry map, writing each subtree bottom-up (deepest directories
// first) so every Target reference it writes already exists in the
// store by the time its parent Tree is put. Returns the root Tree's id,
// or a zero Tree's id if leaves is empty.
func buildTree(s *store.Store, leaves map[string]objects.TreeEntry) (id.ObjectId, error) {
	// children[dir] lists the immediate child names under dir ("" is root).
	children := map[string]map[string]bool{}
	entries := map[string]objects.TreeEntry{} // "dir/name" -> leaf entry, for leaves only
	ensureDir := func(dir string) {
		if children[dir] == nil {
			children[dir] = map[string]bool{}
		}
	}
	ensureDir("")

	for p, e := range leaves {
		entries[p] = e
		dir := path.Dir(p)
		if dir == "." {
			dir = ""
		}
		name := path.Base(p)
		// Walk every ancestor directory of p so intermediate directories
		// with no direct leaf children of their own still get registered.
		for {
			ensureDir(dir)
			children[dir][name] = true
			if dir == "" {
				break
			}
			name = path.Base(dir)
			parent := path.Dir(dir)
			if parent == "." {
				parent = ""
			}
			dir = parent
		}
	}

	// Directories ordered deepest-first by path-segment count, so a
	// directory's subtrees are always built and Put before the
	// directory that references them.
	var dirs []string
	for d := range children {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return depth(dirs[i]) > depth(dirs[j])
	})

	treeIds := map[string]id.ObjectId{} // dir -> stored Tree id

	for _, dir := range dirs {
		names := make([]string, 0, len(children[dir]))
		for n := range children[dir] {
			names = append(names, n)
		}
		sort.Strings(names)

		tree := &objects.Tree{}
		for _, n := range names {
			childPath := n
			if dir != "" {
				childPath = path.Join(dir, n)
			}
			if leaf, ok := entries[childPath]; ok {
				tree.Entries = append(tree.Entries, leaf)
				continue
			}
			// Not a leaf: must be a subdirectory already built.
			subId, ok := treeIds[childPath]
			if !ok {
				continue // empty directory with no surviving leaves; drop it
			}
			tree.Entries = append(tree.Entries, objects.TreeEntry{
				Name:   n,
				Mode:   objects.ModeDirectory,
				Target: subId,
			})
		}

		tid, err := s.Put(tree)
		if err != nil {
			return id.ObjectId{}, err
		}
		treeIds[dir] = tid
	}

	return treeIds[""], nil
}

func depth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}
