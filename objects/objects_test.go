package objects

import (
	"testing"

	"github.com/clawvcs/claw/id"
	"github.com/stretchr/testify/require"
)

func sampleOid(b byte) id.ObjectId {
	return id.Hash(0x01, []byte{b})
}

func TestBlobRoundTrip(t *testing.T) {
	want := &Blob{Data: []byte("hello claw")}
	got, err := decodeBlob(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestTreeRoundTrip(t *testing.T) {
	want := &Tree{Entries: []TreeEntry{
		{Name: "a.txt", Mode: ModeRegular, Target: sampleOid(1), CodecId: "text/line"},
		{Name: "sub", Mode: ModeDirectory, Target: sampleOid(2)},
	}}
	got, err := decodeTree(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPatchRoundTrip(t *testing.T) {
	want := &Patch{
		TargetPath:   "a.txt",
		CodecId:      "text/line",
		BaseObject:   sampleOid(3),
		ResultObject: sampleOid(4),
		Ops:          []byte("diff-bytes"),
		CodecPayload: []byte("side-metadata"),
	}
	got, err := decodePatch(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRevisionRoundTrip(t *testing.T) {
	want := &Revision{
		Parents:      []id.ObjectId{sampleOid(4), sampleOid(5)},
		Patches:      []id.ObjectId{sampleOid(20), sampleOid(21)},
		Tree:         sampleOid(6),
		SnapshotBase: sampleOid(22),
		CapsuleId:    sampleOid(23),
		ChangeId:     sampleOid(24),
		Author:       "agent-7",
		TimestampMs:  1234567890,
		Summary:      "integrate change set",
		PolicyEvidence: []Evidence{
			{CheckName: "tests", Passed: true},
			{CheckName: "lint", Passed: false, Detail: "2 warnings"},
		},
	}
	got, err := decodeRevision(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := &Snapshot{Revision: sampleOid(7), Tree: sampleOid(8), CreatedMs: 42}
	got, err := decodeSnapshot(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestIntentRoundTrip(t *testing.T) {
	var intentId id.IntentId
	intentId[0] = 9
	want := &Intent{
		Id:          intentId,
		Title:       "add retry logic",
		Description: "wrap flaky calls",
		Status:      IntentOpen,
		CreatedMs:   99,
	}
	got, err := decodeIntent(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestChangeRoundTrip(t *testing.T) {
	var changeId id.ChangeId
	changeId[1] = 3
	var intentId id.IntentId
	intentId[1] = 9
	want := &Change{
		Id:        changeId,
		Intent:    intentId,
		Revision:  sampleOid(10),
		Status:    ChangeReady,
		CreatedMs: 17,
	}
	got, err := decodeChange(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestConflictRoundTrip(t *testing.T) {
	var conflictId id.ConflictId
	conflictId[2] = 7
	want := &Conflict{
		Id:                 conflictId,
		BaseRevision:       sampleOid(10),
		LeftRevision:       sampleOid(11),
		RightRevision:      sampleOid(12),
		FilePath:           "config.json",
		CodecId:            "json/tree",
		LeftPatchIds:       []id.ObjectId{sampleOid(13)},
		RightPatchIds:      []id.ObjectId{sampleOid(14)},
		ResolutionPatchIds: []id.ObjectId{sampleOid(15)},
		Status:             ConflictOpen,
		CreatedAtMs:        42,
	}
	got, err := decodeConflict(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPolicyRoundTrip(t *testing.T) {
	score := 0.75
	want := &Policy{
		PolicyId:          "main-branch",
		Visibility:        VisibilityRestricted,
		RequiredChecks:    []string{"lint", "tests", "security-review"},
		RequiredReviewers: []string{"alice", "bob"},
		SensitivePaths:    []string{"secrets/", "infra/"},
		QuarantineLane:    "needs-review",
		MinTrustScore:     &score,
	}
	got, err := decodePolicy(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPolicyRoundTripZeroTrustScoreIsNotOmitted(t *testing.T) {
	score := 0.0
	want := &Policy{PolicyId: "zero", MinTrustScore: &score}
	got, err := decodePolicy(want.Encode())
	require.NoError(t, err)
	require.NotNil(t, got.MinTrustScore)
	require.Equal(t, 0.0, *got.MinTrustScore)
}

func TestWorkstreamRoundTrip(t *testing.T) {
	var wsId id.WorkstreamId
	wsId[0] = 20
	var i1, i2 id.IntentId
	i1[0], i2[0] = 1, 2
	want := &Workstream{
		Id:        wsId,
		Name:      "auth-rewrite",
		Intents:   []id.IntentId{i1, i2},
		CreatedMs: 55,
	}
	got, err := decodeWorkstream(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRefLogRoundTrip(t *testing.T) {
	want := &RefLog{
		RefName:     "refs/heads/main",
		Old:         sampleOid(14),
		New:         sampleOid(15),
		Actor:       "agent-7",
		Message:     "fast-forward",
		TimestampMs: 100,
	}
	got, err := decodeRefLog(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestCapsuleRoundTrip(t *testing.T) {
	var intentId id.IntentId
	intentId[0] = 30
	want := &Capsule{
		Public: CapsulePublicFields{
			RevisionId: sampleOid(16),
			IntentId:   intentId,
			AgentId:    "agent-7",
			Evidence: []Evidence{
				{CheckName: "tests", Passed: true},
				{CheckName: "lint", Passed: true, Detail: "0 warnings"},
			},
			CreatedMs: 88,
		},
		EncryptedPrivate: []byte("nonce-and-ciphertext"),
		Signature: CapsuleSignature{
			Algorithm: "Ed25519",
			CoseSign1: []byte("cose-bytes"),
		},
	}
	got, err := decodeCapsule(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeDispatchesOnKind(t *testing.T) {
	blob := &Blob{Data: []byte("x")}
	obj, err := Decode(KindBlob, blob.Encode())
	require.NoError(t, err)
	require.Equal(t, KindBlob, obj.Kind())

	_, err = Decode(Kind(0xFF), nil)
	require.Error(t, err)
}
