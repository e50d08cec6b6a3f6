package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTrip(t *testing.T) {
	c := NewBinaryCodec()
	base := []byte("v1")
	target := []byte("v2")

	patch, err := c.Diff(base, target)
	require.NoError(t, err)
	got, err := c.Apply(base, patch)
	require.NoError(t, err)
	require.Equal(t, target, got)

	inv, err := c.Invert(base, patch)
	require.NoError(t, err)
	back, err := c.Apply(got, inv)
	require.NoError(t, err)
	require.Equal(t, base, back)
}

func TestBinaryNoChangeDiffIsEmpty(t *testing.T) {
	c := NewBinaryCodec()
	patch, err := c.Diff([]byte("same"), []byte("same"))
	require.NoError(t, err)
	require.Empty(t, patch)
}

func TestTextLineRoundTrip(t *testing.T) {
	c := NewTextLineCodec()
	base := []byte("line1\nline2\nline3\n")
	target := []byte("line1\nchanged\nline3\nline4\n")

	patch, err := c.Diff(base, target)
	require.NoError(t, err)
	got, err := c.Apply(base, patch)
	require.NoError(t, err)
	require.Equal(t, string(target), string(got))
}

func TestTextLineInvertRoundTrips(t *testing.T) {
	c := NewTextLineCodec()
	base := []byte("alpha\nbeta\ngamma\n")
	target := []byte("alpha\nBETA\ngamma\ndelta\n")

	patch, err := c.Diff(base, target)
	require.NoError(t, err)
	inv, err := c.Invert(base, patch)
	require.NoError(t, err)

	back, err := c.Apply(target, inv)
	require.NoError(t, err)
	require.Equal(t, string(base), string(back))
}

func TestTextLineCommuteDisjointEdits(t *testing.T) {
	c := NewTextLineCodec()
	base := []byte("a\nb\nc\nd\ne\n")
	ours := []byte("A\nb\nc\nd\ne\n")
	theirs := []byte("a\nb\nc\nd\nE\n")

	p1, err := c.Diff(base, ours)
	require.NoError(t, err)
	p2, err := c.Diff(base, theirs)
	require.NoError(t, err)

	rebased, ok, err := c.Commute(base, p1, p2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p2, rebased)
}

func TestTextLineMerge3DisjointEditsMerge(t *testing.T) {
	c := NewTextLineCodec()
	base := []byte("a\nb\nc\nd\ne\n")
	ours := []byte("A\nb\nc\nd\ne\n")
	theirs := []byte("a\nb\nc\nd\nE\n")

	merged, conflict, err := c.Merge3(base, ours, theirs)
	require.NoError(t, err)
	require.False(t, conflict)
	require.Equal(t, "A\nb\nc\nd\nE\n", string(merged))
}

func TestTextLineMerge3OverlappingEditsConflict(t *testing.T) {
	c := NewTextLineCodec()
	base := []byte("a\nb\nc\n")
	ours := []byte("a\nB1\nc\n")
	theirs := []byte("a\nB2\nc\n")

	_, conflict, err := c.Merge3(base, ours, theirs)
	require.NoError(t, err)
	require.True(t, conflict)
}

func TestJSONTreeRoundTrip(t *testing.T) {
	c := NewJSONTreeCodec()
	base := []byte(`{"name":"claw","version":1}`)
	target := []byte(`{"name":"claw","version":2,"tags":["a"]}`)

	patch, err := c.Diff(base, target)
	require.NoError(t, err)
	got, err := c.Apply(base, patch)
	require.NoError(t, err)

	var gotMap, wantMap map[string]any
	require.NoError(t, json.Unmarshal(got, &gotMap))
	require.NoError(t, json.Unmarshal(target, &wantMap))
	require.Equal(t, wantMap, gotMap)
}

func TestJSONTreeInvertRoundTrips(t *testing.T) {
	c := NewJSONTreeCodec()
	base := []byte(`{"a":1,"b":2}`)
	target := []byte(`{"a":1,"b":3,"c":4}`)

	patch, err := c.Diff(base, target)
	require.NoError(t, err)
	inv, err := c.Invert(base, patch)
	require.NoError(t, err)

	back, err := c.Apply(target, inv)
	require.NoError(t, err)

	var backMap, baseMap map[string]any
	require.NoError(t, json.Unmarshal(back, &backMap))
	require.NoError(t, json.Unmarshal(base, &baseMap))
	require.Equal(t, baseMap, backMap)
}

func TestJSONTreeMerge3DisjointFieldsMerge(t *testing.T) {
	c := NewJSONTreeCodec()
	base := []byte(`{"a":1,"b":2}`)
	ours := []byte(`{"a":10,"b":2}`)
	theirs := []byte(`{"a":1,"b":20}`)

	merged, conflict, err := c.Merge3(base, ours, theirs)
	require.NoError(t, err)
	require.False(t, conflict)

	var got map[string]any
	require.NoError(t, json.Unmarshal(merged, &got))
	require.Equal(t, float64(10), got["a"])
	require.Equal(t, float64(20), got["b"])
}

func TestJSONTreeMerge3SameFieldConflict(t *testing.T) {
	c := NewJSONTreeCodec()
	base := []byte(`{"a":1}`)
	ours := []byte(`{"a":2}`)
	theirs := []byte(`{"a":3}`)

	_, conflict, err := c.Merge3(base, ours, theirs)
	require.NoError(t, err)
	require.True(t, conflict)
}

func TestRegistryFallsBackToBinary(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, "text/line", r.ForExtension(".md").Id())
	require.Equal(t, "json/tree", r.ForExtension(".json").Id())
	require.Equal(t, "binary", r.ForExtension(".png").Id())
}
