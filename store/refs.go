package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/objects"
	"go.uber.org/zap"
)

// RefName is a namespaced ref, e.g. "refs/heads/main" or
// "refs/intents/<id>" (spec §4.2).
type RefName string

func (r RefName) path(root string) string {
	return filepath.Join(root, string(r))
}

// ReadRef returns the ObjectId a ref currently points to.
func (s *Store) ReadRef(name RefName) (id.ObjectId, error) {
	raw, err := os.ReadFile(name.path(s.root))
	if err != nil {
		if os.IsNotExist(err) {
			return id.ObjectId{}, clawerr.ErrRefNotFound
		}
		return id.ObjectId{}, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	return id.ParseObjectId(strings.TrimSpace(string(raw)))
}

// RefAd is one entry of an advertise_refs response: a ref name paired
// with the ObjectId it currently points to (spec §4.9).
type RefAd struct {
	Name  RefName
	Value id.ObjectId
}

// ListRefs walks the refs namespace under "refs/" and returns every ref
// whose name has the given prefix, sorted by name. An empty prefix
// matches everything, mirroring advertise_refs(prefix="") in a clone.
func (s *Store) ListRefs(prefix string) ([]RefAd, error) {
	root := filepath.Join(s.root, "refs")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	var out []RefAd
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := RefName(filepath.ToSlash(rel))
		if !strings.HasPrefix(string(name), prefix) {
			return nil
		}
		value, err := s.ReadRef(name)
		if err != nil {
			return err
		}
		out = append(out, RefAd{Name: name, Value: value})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RefUpdate is one entry in a batch ref update (spec §4.3 "two-phase
// batch updates"): move name from expectedOld to newValue. expectedOld
// is nil for "ref must not already exist."
type RefUpdate struct {
	Name        RefName
	ExpectedOld *id.ObjectId
	New         id.ObjectId
	Force       bool
	Actor       string
	Message     string
}

// UpdateRefCas performs a single compare-and-set ref update: it fails
// with a *clawerr.RefCasConflict if the ref's observed value doesn't
// match expectedOld, and (unless Force is set) with
// clawerr.ErrNonFastForward if expectedOld is not an ancestor of New.
// This mirrors the teacher's ETag-guarded CommitContext, generalized
// from "the blob's current ETag" to "the ref's current target, checked
// for fast-forward."
func (s *Store) UpdateRefCas(u RefUpdate) error {
	return s.UpdateRefsCas([]RefUpdate{u})
}

// UpdateRefsCas performs a batch of ref updates as a single logical
// unit: phase one validates every update's CAS precondition and
// fast-forward requirement under one lock; phase two applies all of
// them. If any validation fails, no ref is changed.
func (s *Store) UpdateRefsCas(updates []RefUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	// A single repository-wide lock serializes batches; per-ref locking
	// would allow interleaving that defeats the "all or nothing" batch
	// guarantee.
	lock, err := AcquireLock(filepath.Join(s.root, "refs"))
	if err != nil {
		return err
	}
	defer lock.Release()

	// Phase one: validate.
	for _, u := range updates {
		current, err := s.ReadRef(u.Name)
		currentExists := err == nil
		if err != nil && err != clawerr.ErrRefNotFound {
			return err
		}

		if u.ExpectedOld == nil {
			if currentExists {
				actual := current.String()
				return &clawerr.RefCasConflict{Ref: string(u.Name), Expected: nil, Actual: &actual}
			}
		} else {
			if !currentExists {
				expected := u.ExpectedOld.String()
				return &clawerr.RefCasConflict{Ref: string(u.Name), Expected: &expected, Actual: nil}
			}
			if current != *u.ExpectedOld {
				expected := u.ExpectedOld.String()
				actual := current.String()
				return &clawerr.RefCasConflict{Ref: string(u.Name), Expected: &expected, Actual: &actual}
			}
			if !u.Force {
				isFF, err := s.isAncestor(*u.ExpectedOld, u.New)
				if err != nil {
					return err
				}
				if !isFF {
					return clawerr.ErrNonFastForward
				}
			}
		}
	}

	// Phase two: apply.
	for _, u := range updates {
		path := u.Name.path(s.root)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("claw: %w", clawerr.ErrIO)
		}
		if err := atomicWriteFile(path, []byte(u.New.String()+"\n")); err != nil {
			return fmt.Errorf("claw: %w", clawerr.ErrIO)
		}
		var oldId id.ObjectId
		if u.ExpectedOld != nil {
			oldId = *u.ExpectedOld
		}
		if err := s.appendReflog(u.Name, oldId, u.New, u.Actor, u.Message); err != nil {
			s.log.Error("reflog append failed", zap.Error(err))
		}
	}
	return nil
}

// isAncestor walks backward from tip via Revision.Parents looking for
// target, failing closed (not an ancestor) the moment it meets an
// object that isn't a Revision or is missing — local ref updates never
// expect missing history, unlike the partial-clone-tolerant walk in
// the sync package.
func (s *Store) isAncestor(target, tip id.ObjectId) (bool, error) {
	if target == tip {
		return true, nil
	}
	seen := map[id.ObjectId]bool{}
	queue := []id.ObjectId{tip}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true

		obj, err := s.Get(cur)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				return false, nil
			}
			return false, err
		}
		rev, ok := obj.(*objects.Revision)
		if !ok {
			return false, nil
		}
		for _, p := range rev.Parents {
			if p == target {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}

// HeadState is the resolved state of HEAD: either a symbolic pointer
// to a ref, or a detached ObjectId (spec §4.2).
type HeadState struct {
	SymbolicRef RefName // empty if detached
	Detached    id.ObjectId
}

func (s *Store) headPath() string { return filepath.Join(s.root, "HEAD") }

// ResolveHead reads HEAD and, if symbolic, resolves the ref it points
// to down to an ObjectId.
func (s *Store) ResolveHead() (id.ObjectId, error) {
	head, err := s.ReadHead()
	if err != nil {
		return id.ObjectId{}, err
	}
	if head.SymbolicRef == "" {
		return head.Detached, nil
	}
	return s.ReadRef(head.SymbolicRef)
}

// ReadHead returns HEAD's raw state without resolving a symbolic ref.
func (s *Store) ReadHead() (HeadState, error) {
	raw, err := os.ReadFile(s.headPath())
	if err != nil {
		return HeadState{}, fmt.Errorf("claw: %w", clawerr.ErrIO)
	}
	line := strings.TrimSpace(string(raw))
	const symPrefix = "ref: "
	if strings.HasPrefix(line, symPrefix) {
		return HeadState{SymbolicRef: RefName(strings.TrimPrefix(line, symPrefix))}, nil
	}
	oid, err := id.ParseObjectId(line)
	if err != nil {
		return HeadState{}, err
	}
	return HeadState{Detached: oid}, nil
}

// SetHeadSymbolic points HEAD at a ref by name.
func (s *Store) SetHeadSymbolic(ref RefName) error {
	return atomicWriteFile(s.headPath(), []byte("ref: "+string(ref)+"\n"))
}

// SetHeadDetached points HEAD directly at an ObjectId.
func (s *Store) SetHeadDetached(oid id.ObjectId) error {
	return atomicWriteFile(s.headPath(), []byte(oid.String()+"\n"))
}

// nowMs is the wall-clock millisecond timestamp used for reflog
// entries; factored out so tests can't accidentally depend on
// wall-clock skew across a run.
func nowMs() int64 { return time.Now().UnixMilli() }
