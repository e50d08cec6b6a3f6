package sync

import (
	"testing"

	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir(), clawlog.NewNop())
	require.NoError(t, err)
	return s
}

func putBlob(t *testing.T, s *store.Store, data string) id.ObjectId {
	t.Helper()
	oid, err := s.Put(&objects.Blob{Data: []byte(data)})
	require.NoError(t, err)
	return oid
}

// chainOfRevisions builds n linear revisions over a shared empty tree
// and returns their ids, oldest first.
func chainOfRevisions(t *testing.T, s *store.Store, n int) []id.ObjectId {
	t.Helper()
	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)

	var out []id.ObjectId
	var parent id.ObjectId
	for i := 0; i < n; i++ {
		rev := &objects.Revision{Tree: tree, Author: "agent", TimestampMs: int64(i)}
		if !parent.Zero() {
			rev.Parents = []id.ObjectId{parent}
		}
		oid, err := s.Put(rev)
		require.NoError(t, err)
		out = append(out, oid)
		parent = oid
	}
	return out
}

func TestIsAncestorReflexiveAndLinear(t *testing.T) {
	s := newTestStore(t)
	chain := chainOfRevisions(t, s, 3)

	ok, err := IsAncestor(s, chain[0], chain[0])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsAncestor(s, chain[0], chain[2])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsAncestor(s, chain[2], chain[0])
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReachableToleratesMissingReferents(t *testing.T) {
	s := newTestStore(t)
	missing := id.Hash(0x04, []byte("ghost"))
	tree, err := s.Put(&objects.Tree{})
	require.NoError(t, err)
	rev, err := s.Put(&objects.Revision{Tree: tree, Parents: []id.ObjectId{missing}})
	require.NoError(t, err)

	seen, err := Reachable(s, clawlog.NewNop(), []id.ObjectId{rev})
	require.NoError(t, err)
	require.True(t, seen[rev])
	require.True(t, seen[tree])
	require.False(t, seen[missing])
}

func TestOrderedReachableIsDependencyFirst(t *testing.T) {
	s := newTestStore(t)
	chain := chainOfRevisions(t, s, 3)

	order, err := OrderedReachable(s, clawlog.NewNop(), []id.ObjectId{chain[2]})
	require.NoError(t, err)

	pos := map[id.ObjectId]int{}
	for i, oid := range order {
		pos[oid] = i
	}
	require.Less(t, pos[chain[0]], pos[chain[1]])
	require.Less(t, pos[chain[1]], pos[chain[2]])
}

func TestFilterIncludesPatchByPathPrefixAndCodec(t *testing.T) {
	p := &objects.Patch{TargetPath: "src/main.rs", CodecId: "text/line"}

	require.True(t, Filter{}.Include(p))
	require.True(t, (Filter{PathPrefixes: []string{"src/"}}).Include(p))
	require.False(t, (Filter{PathPrefixes: []string{"docs/"}}).Include(p))
	require.True(t, (Filter{CodecIds: []string{"text/line"}}).Include(p))
	require.False(t, (Filter{CodecIds: []string{"json/tree"}}).Include(p))
}

func TestFilterIncludesRevisionByTimeRange(t *testing.T) {
	r := &objects.Revision{TimestampMs: 100}
	require.True(t, Filter{}.Include(r))
	require.True(t, (Filter{TimeRangeMs: &[2]int64{0, 200}}).Include(r))
	require.False(t, (Filter{TimeRangeMs: &[2]int64{200, 300}}).Include(r))
}

func TestCloneCopiesRefsAndObjects(t *testing.T) {
	remote := newTestStore(t)
	chain := chainOfRevisions(t, remote, 2)
	require.NoError(t, remote.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", New: chain[1], Actor: "agent", Message: "init",
	}))

	local := newTestStore(t)
	require.NoError(t, Clone(remote, local, clawlog.NewNop(), nil))

	got, err := local.ReadRef("refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, chain[1], got)

	_, err = local.Get(chain[0])
	require.NoError(t, err)
	_, err = local.Get(chain[1])
	require.NoError(t, err)

	head, err := local.ResolveHead()
	require.NoError(t, err)
	require.Equal(t, chain[1], head)
}

func TestPullFastForwards(t *testing.T) {
	remote := newTestStore(t)
	chain := chainOfRevisions(t, remote, 1)
	require.NoError(t, remote.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", New: chain[0], Actor: "agent", Message: "init",
	}))

	local := newTestStore(t)
	require.NoError(t, Clone(remote, local, clawlog.NewNop(), nil))

	base, err := remote.Get(chain[0])
	require.NoError(t, err)
	next := &objects.Revision{Tree: base.(*objects.Revision).Tree, Parents: []id.ObjectId{chain[0]}, TimestampMs: 1}
	nextId, err := remote.Put(next)
	require.NoError(t, err)
	require.NoError(t, remote.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", ExpectedOld: &chain[0], New: nextId, Actor: "agent", Message: "advance",
	}))

	require.NoError(t, Pull(remote, local, clawlog.NewNop(), "refs/heads/main", false))

	got, err := local.ReadRef("refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, nextId, got)
}

func TestPushRefRejectsNonFastForward(t *testing.T) {
	local := newTestStore(t)
	chain := chainOfRevisions(t, local, 1)
	require.NoError(t, local.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", New: chain[0], Actor: "agent", Message: "init",
	}))

	remote := newTestStore(t)
	otherTree, err := remote.Put(&objects.Tree{})
	require.NoError(t, err)
	diverged, err := remote.Put(&objects.Revision{Tree: otherTree, TimestampMs: 99})
	require.NoError(t, err)
	require.NoError(t, remote.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", New: diverged, Actor: "agent", Message: "init",
	}))

	err = PushRef(local, remote, clawlog.NewNop(), "refs/heads/main", false)
	require.Error(t, err)
}

func TestPushRejectsUnknownReferent(t *testing.T) {
	s := newTestStore(t)
	missing := id.Hash(0x02, []byte("missing-tree"))
	rev := &objects.Revision{Tree: missing}

	_, err := Push(s, []FetchedObject{{Id: id.Hash(byte(rev.Kind()), rev.Encode()), Obj: rev}})
	require.Error(t, err)
}

func TestEventEncodeDecodeRoundTrip(t *testing.T) {
	oid := putBlob(t, newTestStore(t), "x")
	ev := Event{Type: EventRefUpdated, RefName: "refs/heads/main", ObjectId: &oid, TimestampMs: 42}

	encoded, err := EncodeEvent(ev)
	require.NoError(t, err)
	decoded, err := DecodeEvent(encoded)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)
}

func TestWatcherCollatesRefChanges(t *testing.T) {
	s := newTestStore(t)
	chain := chainOfRevisions(t, s, 1)

	w := NewWatcher(s, t.TempDir(), clawlog.NewNop())
	require.NoError(t, w.snapshot())

	require.NoError(t, s.UpdateRefCas(store.RefUpdate{
		Name: "refs/heads/main", New: chain[0], Actor: "agent", Message: "init",
	}))

	events := make(chan Event, 4)
	w.collate(events)
	close(events)

	var got []Event
	for e := range events {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	require.Equal(t, EventRefCreated, got[0].Type)
	require.Equal(t, "refs/heads/main", got[0].RefName)
}
