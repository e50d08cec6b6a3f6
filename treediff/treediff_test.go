package treediff

import (
	"testing"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/stretchr/testify/require"
)

type memLoader map[id.ObjectId]*objects.Tree

func (m memLoader) LoadTree(oid id.ObjectId) (*objects.Tree, error) {
	t, ok := m[oid]
	if !ok {
		return nil, clawerr.ErrObjectNotFound
	}
	return t, nil
}

func oidFor(b byte) id.ObjectId {
	return id.Hash(0x01, []byte{b})
}

func TestDiffAddedDeletedModified(t *testing.T) {
	base := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "a.txt", Mode: objects.ModeRegular, Target: oidFor(1)},
		{Name: "b.txt", Mode: objects.ModeRegular, Target: oidFor(2)},
	}}
	target := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "a.txt", Mode: objects.ModeRegular, Target: oidFor(9)}, // modified
		{Name: "c.txt", Mode: objects.ModeRegular, Target: oidFor(3)}, // added
		// b.txt deleted
	}}

	changes, err := Diff(memLoader{}, base, target)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	byPath := map[string]Change{}
	for _, c := range changes {
		byPath[c.Path] = c
	}
	require.Equal(t, Modified, byPath["a.txt"].Kind)
	require.Equal(t, Deleted, byPath["b.txt"].Kind)
	require.Equal(t, Added, byPath["c.txt"].Kind)
}

func TestDiffRecursesIntoSubdirectories(t *testing.T) {
	subBase := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "nested.txt", Mode: objects.ModeRegular, Target: oidFor(1)},
	}}
	subTarget := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "nested.txt", Mode: objects.ModeRegular, Target: oidFor(2)},
	}}
	subBaseId := oidFor(10)
	subTargetId := oidFor(11)

	loader := memLoader{subBaseId: subBase, subTargetId: subTarget}

	base := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "dir", Mode: objects.ModeDirectory, Target: subBaseId},
	}}
	target := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "dir", Mode: objects.ModeDirectory, Target: subTargetId},
	}}

	changes, err := Diff(loader, base, target)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "dir/nested.txt", changes[0].Path)
	require.Equal(t, Modified, changes[0].Kind)
}

func TestDiffTypeChanged(t *testing.T) {
	subId := oidFor(20)
	loader := memLoader{}

	base := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "x", Mode: objects.ModeRegular, Target: oidFor(1)},
	}}
	target := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "x", Mode: objects.ModeDirectory, Target: subId},
	}}

	changes, err := Diff(loader, base, target)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, TypeChanged, changes[0].Kind)
}

func TestDiffUnchangedSubtreeSkipped(t *testing.T) {
	shared := oidFor(5)
	loader := memLoader{}

	base := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "dir", Mode: objects.ModeDirectory, Target: shared},
	}}
	target := &objects.Tree{Entries: []objects.TreeEntry{
		{Name: "dir", Mode: objects.ModeDirectory, Target: shared},
	}}

	changes, err := Diff(loader, base, target)
	require.NoError(t, err)
	require.Empty(t, changes)
}
