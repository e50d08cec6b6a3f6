package codec

import (
	"strings"

	"github.com/clawvcs/claw/clawerr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pmezard/go-difflib/difflib"
)

// lineOp is one line-range edit, the CBOR-serialized unit a text/line
// patch payload is built from. Ranges are expressed against the base
// content's line indices, the same way difflib.OpCode reports them.
type lineOp struct {
	Tag      string   `cbor:"tag"` // "replace", "delete", or "insert"
	BaseFrom int      `cbor:"base_from"`
	BaseTo   int      `cbor:"base_to"`
	Lines    []string `cbor:"lines,omitempty"` // replacement/inserted lines
}

// TextLineCodec diffs and merges newline-delimited text at line
// granularity, using the same SequenceMatcher opcode model
// pmezard/go-difflib exposes for unified-diff generation (spec §4.4).
type TextLineCodec struct{}

func NewTextLineCodec() *TextLineCodec { return &TextLineCodec{} }

func (c *TextLineCodec) Id() string { return "text/line" }

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(b), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) []byte {
	return []byte(strings.Join(lines, ""))
}

func (c *TextLineCodec) opcodes(base, target []byte) ([]difflib.OpCode, []string, []string) {
	a := splitLines(base)
	b := splitLines(target)
	m := difflib.NewMatcher(a, b)
	return m.GetOpCodes(), a, b
}

func (c *TextLineCodec) Diff(base, target []byte) ([]byte, error) {
	codes, _, b := c.opcodes(base, target)
	var ops []lineOp
	for _, oc := range codes {
		switch oc.Tag {
		case 'r':
			ops = append(ops, lineOp{Tag: "replace", BaseFrom: oc.I1, BaseTo: oc.I2, Lines: b[oc.J1:oc.J2]})
		case 'd':
			ops = append(ops, lineOp{Tag: "delete", BaseFrom: oc.I1, BaseTo: oc.I2})
		case 'i':
			ops = append(ops, lineOp{Tag: "insert", BaseFrom: oc.I1, BaseTo: oc.I2, Lines: b[oc.J1:oc.J2]})
		}
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return cbor.Marshal(ops)
}

func decodeLineOps(patch []byte) ([]lineOp, error) {
	if len(patch) == 0 {
		return nil, nil
	}
	var ops []lineOp
	if err := cbor.Unmarshal(patch, &ops); err != nil {
		return nil, clawerr.ErrDeserialization
	}
	return ops, nil
}

// applyOps replays line ops against base's lines, walking base and the
// op list together since ops are always emitted in ascending BaseFrom
// order by Diff.
func applyOps(baseLines []string, ops []lineOp) []string {
	var out []string
	cursor := 0
	for _, op := range ops {
		out = append(out, baseLines[cursor:op.BaseFrom]...)
		if op.Tag != "delete" {
			out = append(out, op.Lines...)
		}
		cursor = op.BaseTo
	}
	out = append(out, baseLines[cursor:]...)
	return out
}

func (c *TextLineCodec) Apply(base, patch []byte) ([]byte, error) {
	ops, err := decodeLineOps(patch)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return base, nil
	}
	return joinLines(applyOps(splitLines(base), ops)), nil
}

// Invert rebuilds an inverse op list by diffing in the opposite
// direction: Apply the forward patch to get the target content, then
// diff target back to base. This is simpler and just as correct as
// trying to flip individual lineOps in place, since line numbers shift
// once earlier ops are accounted for.
func (c *TextLineCodec) Invert(base, patch []byte) ([]byte, error) {
	target, err := c.Apply(base, patch)
	if err != nil {
		return nil, err
	}
	return c.Diff(target, base)
}

// rangesOverlap reports whether two base-line ranges [a1,a2) and
// [b1,b2) intersect.
func rangesOverlap(a1, a2, b1, b2 int) bool {
	return a1 < b2 && b1 < a2
}

// Commute: p2 can be replayed after p1 as long as no op in p1 touches a
// base-line range that an op in p2 also touches. Each of p2's ops is
// shifted by the net line delta (lines written minus lines removed) of
// the p1 ops that end at or before it, so the rebased patch applies to
// p1's result. This is a conservative, sound-but-incomplete rule
// (spec §4.4's "extension→codec registry with binary fallback" note
// implies codecs are free to be conservative about what they consider
// safe to commute); anything it rejects falls through to Merge3.
func (c *TextLineCodec) Commute(base, p1, p2 []byte) ([]byte, bool, error) {
	ops1, err := decodeLineOps(p1)
	if err != nil {
		return nil, false, err
	}
	ops2, err := decodeLineOps(p2)
	if err != nil {
		return nil, false, err
	}
	for _, o1 := range ops1 {
		for _, o2 := range ops2 {
			if rangesOverlap(o1.BaseFrom, o1.BaseTo, o2.BaseFrom, o2.BaseTo) {
				return nil, false, nil
			}
		}
	}
	if len(ops2) == 0 {
		return p2, true, nil
	}
	for i := range ops2 {
		shift := 0
		for _, o1 := range ops1 {
			if o1.BaseTo <= ops2[i].BaseFrom {
				shift += len(o1.Lines) - (o1.BaseTo - o1.BaseFrom)
			}
		}
		ops2[i].BaseFrom += shift
		ops2[i].BaseTo += shift
	}
	rebased, err := cbor.Marshal(ops2)
	if err != nil {
		return nil, false, err
	}
	return rebased, true, nil
}

// Merge3 applies both patches' ops directly when no op of one side
// touches a base-line range the other side also touches; otherwise it
// returns ours with conflict set.
func (c *TextLineCodec) Merge3(base, ours, theirs []byte) ([]byte, bool, error) {
	if string(ours) == string(theirs) {
		return ours, false, nil
	}
	if string(base) == string(ours) {
		return theirs, false, nil
	}
	if string(base) == string(theirs) {
		return ours, false, nil
	}

	oursPatch, err := c.Diff(base, ours)
	if err != nil {
		return nil, false, err
	}
	theirsPatch, err := c.Diff(base, theirs)
	if err != nil {
		return nil, false, err
	}
	oursOps, err := decodeLineOps(oursPatch)
	if err != nil {
		return nil, false, err
	}
	theirsOps, err := decodeLineOps(theirsPatch)
	if err != nil {
		return nil, false, err
	}

	for _, o := range oursOps {
		for _, t := range theirsOps {
			if rangesOverlap(o.BaseFrom, o.BaseTo, t.BaseFrom, t.BaseTo) {
				// Overlapping edits on the same lines: there is no
				// line-level reconciliation, so surface ours as the
				// best-effort content and let the caller record a
				// Conflict for the path.
				return ours, true, nil
			}
		}
	}

	merged := append(append([]lineOp{}, oursOps...), theirsOps...)
	// Ops must be replayed in ascending base-line order regardless of
	// which side contributed them.
	sortLineOps(merged)
	return joinLines(applyOps(splitLines(base), merged)), false, nil
}

func sortLineOps(ops []lineOp) {
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && (ops[j].BaseFrom < ops[j-1].BaseFrom ||
			(ops[j].BaseFrom == ops[j-1].BaseFrom && ops[j].BaseTo < ops[j-1].BaseTo)); j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
		}
	}
}
