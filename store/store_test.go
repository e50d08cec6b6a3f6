package store

import (
	"testing"

	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/objects"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Init(t.TempDir(), clawlog.NewNop())
	require.NoError(t, err)
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	blob := &objects.Blob{Data: []byte("hello")}

	oid, err := s.Put(blob)
	require.NoError(t, err)
	require.True(t, s.Has(oid))

	got, err := s.Get(oid)
	require.NoError(t, err)
	require.Equal(t, blob, got)
}

func TestGetMissingObject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(id.Hash(0x01, []byte("nope")))
	require.Error(t, err)
}

func TestPutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	blob := &objects.Blob{Data: []byte("same content")}

	first, err := s.Put(blob)
	require.NoError(t, err)
	second, err := s.Put(blob)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRefCasCreateThenFastForward(t *testing.T) {
	s := newTestStore(t)

	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	base, err := s.Put(&objects.Revision{Tree: tree})
	require.NoError(t, err)

	err = s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", ExpectedOld: nil, New: base, Actor: "agent-1", Message: "init",
	})
	require.NoError(t, err)

	next, err := s.Put(&objects.Revision{Parents: []id.ObjectId{base}, Tree: tree})
	require.NoError(t, err)

	baseCopy := base
	err = s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", ExpectedOld: &baseCopy, New: next, Actor: "agent-1", Message: "advance",
	})
	require.NoError(t, err)

	got, err := s.ReadRef("refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, next, got)
}

func TestRefCasConflictOnStaleExpectedOld(t *testing.T) {
	s := newTestStore(t)

	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	base, err := s.Put(&objects.Revision{Tree: tree})
	require.NoError(t, err)
	stale, err := s.Put(&objects.Revision{Tree: tree, Summary: "unrelated"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRefCas(RefUpdate{Name: "refs/heads/main", New: base, Actor: "a"}))

	next, err := s.Put(&objects.Revision{Parents: []id.ObjectId{base}, Tree: tree})
	require.NoError(t, err)

	err = s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", ExpectedOld: &stale, New: next, Actor: "a",
	})
	require.Error(t, err)
}

func TestRefCasRejectsNonFastForwardWithoutForce(t *testing.T) {
	s := newTestStore(t)

	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	base, err := s.Put(&objects.Revision{Tree: tree})
	require.NoError(t, err)
	unrelated, err := s.Put(&objects.Revision{Tree: tree, Summary: "sideways"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRefCas(RefUpdate{Name: "refs/heads/main", New: base, Actor: "a"}))

	baseCopy := base
	err = s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", ExpectedOld: &baseCopy, New: unrelated, Actor: "a",
	})
	require.Error(t, err)

	err = s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", ExpectedOld: &baseCopy, New: unrelated, Actor: "a", Force: true,
	})
	require.NoError(t, err)
}

func TestHeadSymbolicResolution(t *testing.T) {
	s := newTestStore(t)

	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	rev, err := s.Put(&objects.Revision{Tree: tree})
	require.NoError(t, err)
	require.NoError(t, s.UpdateRefCas(RefUpdate{Name: "refs/heads/main", New: rev, Actor: "a"}))
	require.NoError(t, s.SetHeadSymbolic("refs/heads/main"))

	resolved, err := s.ResolveHead()
	require.NoError(t, err)
	require.Equal(t, rev, resolved)
}

func TestReflogRecordsUpdates(t *testing.T) {
	s := newTestStore(t)

	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	rev, err := s.Put(&objects.Revision{Tree: tree})
	require.NoError(t, err)
	require.NoError(t, s.UpdateRefCas(RefUpdate{
		Name: "refs/heads/main", New: rev, Actor: "agent-1", Message: "init",
	}))

	it, err := s.OpenReflog("refs/heads/main")
	require.NoError(t, err)
	defer it.Close()

	entry, err := it.Next()
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "agent-1", entry.Actor)
	require.Equal(t, rev, entry.New)

	entry, err = it.Next()
	require.NoError(t, err)
	require.Nil(t, entry)
}
