package cof

import (
	"bytes"
	"strings"
	"testing"

	"github.com/clawvcs/claw/clawerr"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSmallPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 0x01, []byte("hello")))

	frame, consumed, err := Read(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), consumed)
	require.Equal(t, byte(0x01), frame.TypeTag)
	require.Equal(t, []byte("hello"), frame.Payload)
}

func TestRoundTripEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 0x02, nil))

	frame, consumed, err := Read(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), consumed)
	require.Equal(t, byte(0x02), frame.TypeTag)
	require.Empty(t, frame.Payload)
}

func TestRoundTripCompressedPayload(t *testing.T) {
	large := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 20))
	require.Greater(t, len(large), compressionThreshold)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 0x03, large))

	frame, _, err := Read(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, large, frame.Payload)

	// A payload this repetitive should have compressed smaller than it
	// started, confirming the compression path actually engaged.
	require.Less(t, buf.Len(), len(large))
}

func TestRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 0x01, []byte("data")))
	corrupted := buf.Bytes()
	corrupted[0] = 'X'

	_, _, err := Read(corrupted)
	require.Error(t, err)
}

func TestRejectsCorruptedCrc(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 0x01, []byte("data")))
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	_, _, err := Read(corrupted)
	require.ErrorIs(t, err, clawerr.ErrCrc32Mismatch)
}
