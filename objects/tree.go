package objects

import (
	"sort"

	"github.com/clawvcs/claw/id"
)

// TreeEntry names one child of a Tree: a file (Blob), a subdirectory
// (Tree), or a symlink, with an optional codec hint used to pick the
// diff/merge codec for that path without re-deriving it from the
// extension every time (spec §3 Tree, §4.4).
type TreeEntry struct {
	Name     string
	Mode     Mode
	Target   id.ObjectId // Blob or Tree id, depending on Mode
	CodecId  string      // "" means "derive from extension" (spec §4.4)
}

// Tree is a content-addressed directory listing, entries kept in
// sorted name order so two directories with identical contents always
// hash identically regardless of insertion order (spec §3, §4.1).
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Kind() Kind { return KindTree }

func (t *Tree) Encode() []byte {
	entries := append([]TreeEntry(nil), t.Entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	var out []byte
	for _, e := range entries {
		var entry []byte
		entry = appendStringField(entry, 1, e.Name)
		entry = appendVarintField(entry, 2, uint64(e.Mode))
		entry = appendObjectIdField(entry, 3, &e.Target)
		entry = appendStringField(entry, 4, e.CodecId)
		out = appendMessageField(out, 1, entry)
	}
	return out
}

func decodeTree(payload []byte) (*Tree, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	entryMsgs := fieldsFor(fields, 1)
	t := &Tree{}
	for _, em := range entryMsgs {
		ef, err := parseFields(em.Raw)
		if err != nil {
			return nil, err
		}
		var target id.ObjectId
		if raw, ok := firstBytes(ef, 3); ok {
			copy(target[:], raw)
		}
		t.Entries = append(t.Entries, TreeEntry{
			Name:    firstString(ef, 1),
			Mode:    Mode(firstVarint(ef, 2)),
			Target:  target,
			CodecId: firstString(ef, 4),
		})
	}
	return t, nil
}
