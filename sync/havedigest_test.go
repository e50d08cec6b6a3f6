package sync

import (
	"testing"

	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/stretchr/testify/require"
)

func mustObjectId(t *testing.T, seed byte) id.ObjectId {
	t.Helper()
	var oid id.ObjectId
	for i := range oid {
		oid[i] = seed
	}
	return oid
}

func TestHaveDigestReportsInsertedMembers(t *testing.T) {
	have := []id.ObjectId{mustObjectId(t, 1), mustObjectId(t, 2), mustObjectId(t, 3)}
	d, err := BuildHaveDigest(have)
	require.NoError(t, err)

	for _, oid := range have {
		maybe, err := d.MaybeHas(oid)
		require.NoError(t, err)
		require.True(t, maybe, "every inserted id must test as maybe-present")
	}
}

func TestHaveDigestEmptySetReportsNothingPresent(t *testing.T) {
	d, err := BuildHaveDigest(nil)
	require.NoError(t, err)

	maybe, err := d.MaybeHas(mustObjectId(t, 9))
	require.NoError(t, err)
	require.False(t, maybe)
}

func TestFetchConsultsPeerHaveDigest(t *testing.T) {
	s := newTestStore(t)
	chain := chainOfRevisions(t, s, 3)

	haveDigest, err := BuildHaveDigest([]id.ObjectId{chain[0]})
	require.NoError(t, err)

	result, err := Fetch(s, clawlog.NewNop(), []id.ObjectId{chain[len(chain)-1]}, nil, &Filter{PeerHave: &haveDigest})
	require.NoError(t, err)

	for _, fo := range result.Objects {
		require.NotEqual(t, chain[0], fo.Id, "object covered by the peer have-digest must be dropped")
	}
	require.Greater(t, result.Dropped, 0)
}
