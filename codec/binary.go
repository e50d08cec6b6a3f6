package codec

import "bytes"

// BinaryCodec is the fallback codec for content with no structural
// diff representation: a patch is either empty (no change) or the
// full replacement content (spec §4.4).
type BinaryCodec struct{}

func NewBinaryCodec() *BinaryCodec { return &BinaryCodec{} }

func (c *BinaryCodec) Id() string { return "binary" }

func (c *BinaryCodec) Diff(base, target []byte) ([]byte, error) {
	if bytes.Equal(base, target) {
		return nil, nil
	}
	return target, nil
}

func (c *BinaryCodec) Apply(base, patch []byte) ([]byte, error) {
	if len(patch) == 0 {
		return base, nil
	}
	return patch, nil
}

func (c *BinaryCodec) Invert(base, patch []byte) ([]byte, error) {
	if len(patch) == 0 {
		return nil, nil
	}
	return base, nil
}

// Commute: two whole-value replacements never commute unless one of
// them is a no-op, since applying either one discards whatever the
// other would have produced.
func (c *BinaryCodec) Commute(base, p1, p2 []byte) ([]byte, bool, error) {
	if len(p1) == 0 {
		return p2, true, nil
	}
	if len(p2) == 0 {
		return p1, true, nil
	}
	return nil, false, nil
}

// Merge3: identical changes merge trivially; a change on only one side
// wins; two different changes conflict (there is no content-aware way
// to reconcile two arbitrary byte replacements).
func (c *BinaryCodec) Merge3(base, ours, theirs []byte) ([]byte, bool, error) {
	if bytes.Equal(ours, theirs) {
		return ours, false, nil
	}
	if bytes.Equal(base, ours) {
		return theirs, false, nil
	}
	if bytes.Equal(base, theirs) {
		return ours, false, nil
	}
	return ours, true, nil
}
