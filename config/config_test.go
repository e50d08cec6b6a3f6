package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesOptions(t *testing.T) {
	c := New(WithName("my-repo"), WithDefaultCodecId("text/line"), WithSyncPollInterval(5000))
	require.Equal(t, CurrentVersion, c.Version)
	require.Equal(t, "my-repo", c.Name)
	require.Equal(t, "text/line", c.DefaultCodecId)
	require.Equal(t, int64(5000), c.SyncPollIntervalMs)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := New(WithName("round-trip"), WithDefaultCodecId("json/tree"))

	require.NoError(t, Save(dir, want))
	got, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
