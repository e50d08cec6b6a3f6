package codec

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/clawvcs/claw/clawerr"
)

// jsonOp is one field-level edit, addressed by a dotted path into the
// decoded JSON value (spec §4.4's "json/tree" codec).
type jsonOp struct {
	Op    string          `json:"op"` // "set" or "delete"
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// JSONTreeCodec diffs and merges JSON documents structurally: a patch
// is a list of per-field set/delete operations rather than a byte
// range edit, so two changes to different fields always commute.
type JSONTreeCodec struct{}

func NewJSONTreeCodec() *JSONTreeCodec { return &JSONTreeCodec{} }

func (c *JSONTreeCodec) Id() string { return "json/tree" }

func decodeJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, clawerr.ErrInvalidJSON
	}
	return m, nil
}

// flatten walks v, collecting leaf values keyed by dotted path. Nested
// objects recurse; nested arrays and scalars are treated as leaves
// (array-element-level diffing is out of scope — spec §4.4 calls for
// a tree codec, not a list-patch codec).
func flatten(prefix string, v any, out map[string]any) {
	obj, ok := v.(map[string]any)
	if !ok {
		out[prefix] = v
		return
	}
	for k, child := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		flatten(path, child, out)
	}
}

func (c *JSONTreeCodec) Diff(base, target []byte) ([]byte, error) {
	baseMap, err := decodeJSON(base)
	if err != nil {
		return nil, err
	}
	targetMap, err := decodeJSON(target)
	if err != nil {
		return nil, err
	}
	baseFlat := map[string]any{}
	targetFlat := map[string]any{}
	flatten("", baseMap, baseFlat)
	flatten("", targetMap, targetFlat)

	var ops []jsonOp
	for path, v := range targetFlat {
		old, existed := baseFlat[path]
		if !existed || !deepEqualJSON(old, v) {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, clawerr.ErrInvalidJSON
			}
			ops = append(ops, jsonOp{Op: "set", Path: path, Value: raw})
		}
	}
	for path := range baseFlat {
		if _, ok := targetFlat[path]; !ok {
			ops = append(ops, jsonOp{Op: "delete", Path: path})
		}
	}
	if len(ops) == 0 {
		return nil, nil
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })
	return json.Marshal(ops)
}

func deepEqualJSON(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return bytes.Equal(ab, bb)
}

func decodeJSONOps(patch []byte) ([]jsonOp, error) {
	if len(patch) == 0 {
		return nil, nil
	}
	var ops []jsonOp
	if err := json.Unmarshal(patch, &ops); err != nil {
		return nil, clawerr.ErrDeserialization
	}
	return ops, nil
}

func (c *JSONTreeCodec) Apply(base, patch []byte) ([]byte, error) {
	baseMap, err := decodeJSON(base)
	if err != nil {
		return nil, err
	}
	ops, err := decodeJSONOps(patch)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		switch op.Op {
		case "set":
			var v any
			if err := json.Unmarshal(op.Value, &v); err != nil {
				return nil, clawerr.ErrInvalidJSON
			}
			setPath(baseMap, op.Path, v)
		case "delete":
			deletePath(baseMap, op.Path)
		}
	}
	return json.Marshal(baseMap)
}

func setPath(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := m
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = v
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
}

func deletePath(m map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := m
	for i, p := range parts {
		if i == len(parts)-1 {
			delete(cur, p)
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}

func (c *JSONTreeCodec) Invert(base, patch []byte) ([]byte, error) {
	target, err := c.Apply(base, patch)
	if err != nil {
		return nil, err
	}
	return c.Diff(target, base)
}

// Commute: two field-level op sets commute whenever neither set
// touches a path the other also touches (including parent/child
// paths, since setting "a" and setting "a.b" do conflict even though
// the strings differ).
func (c *JSONTreeCodec) Commute(base, p1, p2 []byte) ([]byte, bool, error) {
	ops1, err := decodeJSONOps(p1)
	if err != nil {
		return nil, false, err
	}
	ops2, err := decodeJSONOps(p2)
	if err != nil {
		return nil, false, err
	}
	for _, o1 := range ops1 {
		for _, o2 := range ops2 {
			if pathsConflict(o1.Path, o2.Path) {
				return nil, false, nil
			}
		}
	}
	return p2, true, nil
}

func pathsConflict(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

func (c *JSONTreeCodec) Merge3(base, ours, theirs []byte) ([]byte, bool, error) {
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
	oursOps, err := decodeJSONOps(oursPatch)
	if err != nil {
		return nil, false, err
	}
	theirsOps, err := decodeJSONOps(theirsPatch)
	if err != nil {
		return nil, false, err
	}

	for _, o := range oursOps {
		for _, t := range theirsOps {
			if pathsConflict(o.Path, t.Path) && !deepEqualJSON(o.Value, t.Value) {
				return ours, true, nil
			}
		}
	}

	baseMap, err := decodeJSON(base)
	if err != nil {
		return nil, false, err
	}
	for _, op := range append(append([]jsonOp{}, oursOps...), theirsOps...) {
		switch op.Op {
		case "set":
			var v any
			if err := json.Unmarshal(op.Value, &v); err != nil {
				return nil, false, clawerr.ErrInvalidJSON
			}
			setPath(baseMap, op.Path, v)
		case "delete":
			deletePath(baseMap, op.Path)
		}
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return nil, false, err
	}
	return merged, false, nil
}
