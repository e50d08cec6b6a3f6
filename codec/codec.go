// Package codec is the pluggable diff/merge engine for content codecs:
// text/line, json/tree, and a binary fallback, each implementing the
// same Diff/Apply/Invert/Commute/Merge3 contract so the merge package
// never needs to know which codec produced a given patch (spec §4.4).
package codec

import (
	"github.com/clawvcs/claw/clawerr"
)

// Codec diffs and merges one content representation. Every method
// operates on raw content bytes; the caller (treediff/merge) is
// responsible for routing a given path to the right Codec via the
// Registry.
type Codec interface {
	// Id is the codec's identifier, e.g. "text/line", stored on
	// Tree entries and Patch ops (spec §3).
	Id() string

	// Diff produces an opaque patch payload transforming base into
	// target. A nil/empty return with a nil error means "no change."
	Diff(base, target []byte) ([]byte, error)

	// Apply replays patch against base, producing the target content.
	Apply(base, patch []byte) ([]byte, error)

	// Invert returns the patch that undoes patch, i.e. a payload p'
	// such that Apply(Apply(base, patch), p') == base. It needs base
	// because not every codec's patch format is self-describing enough
	// to invert blind (the binary codec's whole-value replace, for one).
	Invert(base, patch []byte) ([]byte, error)

	// Commute reports whether p2 can be rebased to apply after p1 has
	// already been applied to the same base, without changing the
	// resulting content versus applying them in the opposite order. A
	// false result means the merge engine must fall back to Merge3.
	Commute(base, p1, p2 []byte) (rebased []byte, ok bool, err error)

	// Merge3 three-way merges ours and theirs, both diverged from
	// base. conflict is true when the codec cannot reconcile them
	// automatically; merged is then the codec's best-effort content
	// (ours, by convention) for display alongside the emitted Conflict
	// object, not a resolved result.
	Merge3(base, ours, theirs []byte) (merged []byte, conflict bool, err error)
}

// Registry maps codec ids and file extensions to Codec
// implementations, with Binary as the fallback for unrecognized
// extensions (spec §4.4).
type Registry struct {
	byId        map[string]Codec
	byExtension map[string]string // extension -> codec id
	fallback    Codec
}

// NewRegistry returns a Registry pre-populated with the three built-in
// codecs and a sensible set of extension mappings.
func NewRegistry() *Registry {
	r := &Registry{
		byId:        map[string]Codec{},
		byExtension: map[string]string{},
		fallback:    NewBinaryCodec(),
	}
	r.Register(NewTextLineCodec(), ".txt", ".md", ".go", ".py", ".js", ".ts", ".yaml", ".yml", ".toml", ".c", ".h", ".rs")
	r.Register(NewJSONTreeCodec(), ".json")
	r.Register(r.fallback)
	return r
}

// Register adds codec to the registry under its own Id and binds it to
// the given file extensions (each including the leading dot).
func (r *Registry) Register(codec Codec, extensions ...string) {
	r.byId[codec.Id()] = codec
	for _, ext := range extensions {
		r.byExtension[ext] = codec.Id()
	}
}

// ForExtension returns the codec bound to a file extension, falling
// back to the binary codec for anything unrecognized.
func (r *Registry) ForExtension(ext string) Codec {
	if id, ok := r.byExtension[ext]; ok {
		return r.byId[id]
	}
	return r.fallback
}

// ForId looks up a codec by its stored identifier.
func (r *Registry) ForId(id string) (Codec, error) {
	c, ok := r.byId[id]
	if !ok {
		return nil, clawerr.ErrCodecNotFound
	}
	return c, nil
}
