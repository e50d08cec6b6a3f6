package capsule

import (
	"crypto/ed25519"
	"testing"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) (*Ed25519Signer, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return NewEd25519Signer(priv, "agent-1"), pub
}

func TestBuildAndVerifyRoundTrip(t *testing.T) {
	signer, pub := newTestSigner(t)
	masterKey := make([]byte, 32)
	revId := id.Hash(0x04, []byte("revision"))
	var intentId id.IntentId

	c, err := Build(signer, masterKey, revId, intentId, "agent-1",
		[]objects.Evidence{{CheckName: "tests", Passed: true}}, 1000, []byte("secret notes"))
	require.NoError(t, err)
	require.NotEmpty(t, c.EncryptedPrivate)

	require.NoError(t, Verify(c, pub))

	plaintext, err := OpenPrivate(c, masterKey)
	require.NoError(t, err)
	require.Equal(t, "secret notes", string(plaintext))
}

func TestVerifyRejectsTamperedEvidence(t *testing.T) {
	signer, pub := newTestSigner(t)
	masterKey := make([]byte, 32)
	revId := id.Hash(0x04, []byte("revision"))
	var intentId id.IntentId

	c, err := Build(signer, masterKey, revId, intentId, "agent-1",
		[]objects.Evidence{{CheckName: "tests", Passed: true}}, 1000, nil)
	require.NoError(t, err)

	c.Public.Evidence[0].Passed = false
	require.ErrorIs(t, Verify(c, pub), clawerr.ErrVerificationFailed)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	signer, _ := newTestSigner(t)
	_, otherPub, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	masterKey := make([]byte, 32)
	revId := id.Hash(0x04, []byte("revision"))
	var intentId id.IntentId

	c, err := Build(signer, masterKey, revId, intentId, "agent-1", nil, 1000, nil)
	require.NoError(t, err)

	require.Error(t, Verify(c, otherPub))
}

func TestNoPrivateSectionRoundTrip(t *testing.T) {
	signer, pub := newTestSigner(t)
	masterKey := make([]byte, 32)
	revId := id.Hash(0x04, []byte("revision"))
	var intentId id.IntentId

	c, err := Build(signer, masterKey, revId, intentId, "agent-1", nil, 1000, nil)
	require.NoError(t, err)
	require.Empty(t, c.EncryptedPrivate)
	require.NoError(t, Verify(c, pub))

	plaintext, err := OpenPrivate(c, masterKey)
	require.NoError(t, err)
	require.Empty(t, plaintext)
}
