package sync

import (
	"context"
	"path/filepath"
	"time"

	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
	"github.com/fsnotify/fsnotify"
	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// EventType enumerates the event-subscription surface's record kinds
// (spec §6, §9).
type EventType string

const (
	EventRefCreated EventType = "ref_created"
	EventRefUpdated EventType = "ref_updated"
	EventRefDeleted EventType = "ref_deleted"
)

// Event is one record on the event-subscription stream. It is
// CBOR-encoded on the wire with the same deterministic codec as a
// capsule's public fields (§4.7), reusing one dependency for every
// non-object-model wire structure instead of adding a second.
type Event struct {
	Type        EventType     `cbor:"type"`
	RefName     string        `cbor:"ref_name"`
	ObjectId    *id.ObjectId  `cbor:"object_id,omitempty"`
	TimestampMs int64         `cbor:"timestamp_ms"`
	Message     string        `cbor:"message,omitempty"`
}

// EncodeEvent and DecodeEvent let transports move Event records as
// opaque byte strings.
func EncodeEvent(e Event) ([]byte, error) { return objects.CanonicalCbor(e) }

func DecodeEvent(b []byte) (Event, error) {
	var e Event
	err := cbor.Unmarshal(b, &e)
	return e, err
}

// DefaultPollInterval is the polling fallback's bound, satisfying
// spec §6's "MUST be ≤ a few seconds when no native watch facility
// exists."
const DefaultPollInterval = 2 * time.Second

// Watcher generates Events for refs changing under a store's "refs/"
// directory, preferring fsnotify's native OS watch and falling back to
// bounded-interval polling that diffs the full ref set — the same
// "poll a log directory at a bounded interval, collate what changed"
// shape as the teacher's watcher.LogTailCollator, generalized from
// massif-tail polling over blob paths to ref-listing polling over a
// local directory tree.
type Watcher struct {
	s            *store.Store
	root         string
	log          clawlog.Logger
	pollInterval time.Duration

	prev map[store.RefName]id.ObjectId
}

// NewWatcher returns a Watcher over s, rooted at dir (the same
// directory s.Open/s.Init was given).
func NewWatcher(s *store.Store, dir string, log clawlog.Logger) *Watcher {
	if log == nil {
		log = clawlog.NewNop()
	}
	return &Watcher{
		s:            s,
		root:         dir,
		log:          log,
		pollInterval: DefaultPollInterval,
		prev:         map[store.RefName]id.ObjectId{},
	}
}

// Watch emits Events on the returned channel until ctx is cancelled, at
// which point the channel is closed. It uses fsnotify as a low-latency
// fast path when the local filesystem supports it, and otherwise falls
// back to polling every pollInterval — either way, every observed ref
// change is collated into an Event exactly once.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event, 16)

	if err := w.snapshot(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Info("fsnotify unavailable, falling back to polling", zap.Error(err))
		go w.pollLoop(ctx, out)
		return out, nil
	}
	refsDir := filepath.Join(w.root, "refs")
	if err := watcher.Add(refsDir); err != nil {
		watcher.Close()
		w.log.Info("fsnotify watch add failed, falling back to polling", zap.Error(err))
		go w.pollLoop(ctx, out)
		return out, nil
	}

	go w.fsnotifyLoop(ctx, watcher, out)
	return out, nil
}

func (w *Watcher) fsnotifyLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan Event) {
	defer close(out)
	defer watcher.Close()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.collate(out)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("fsnotify error", zap.Error(err))
		case <-ticker.C:
			// Native watch can miss events under heavy rename/replace
			// traffic on some filesystems; the ticker is a backstop, not
			// the primary signal, when fsnotify is active.
			w.collate(out)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context, out chan Event) {
	defer close(out)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.collate(out)
		}
	}
}

// snapshot records the current ref set without emitting events, so the
// first collate() call after Watch starts reports only genuine changes.
func (w *Watcher) snapshot() error {
	refs, err := w.s.ListRefs("refs")
	if err != nil {
		return err
	}
	for _, r := range refs {
		w.prev[r.Name] = r.Value
	}
	return nil
}

// collate diffs the current ref set against the last observed one and
// emits one Event per created, updated, or deleted ref — the same
// "collate what changed" step the teacher's CollatePath performs per
// blob path, applied here to the whole ref set per tick.
func (w *Watcher) collate(out chan Event) {
	refs, err := w.s.ListRefs("refs")
	if err != nil {
		w.log.Error("watcher: list refs failed", zap.Error(err))
		return
	}

	now := map[store.RefName]id.ObjectId{}
	for _, r := range refs {
		now[r.Name] = r.Value
		old, existed := w.prev[r.Name]
		switch {
		case !existed:
			oid := r.Value
			out <- Event{Type: EventRefCreated, RefName: string(r.Name), ObjectId: &oid, TimestampMs: nowMs()}
		case old != r.Value:
			oid := r.Value
			out <- Event{Type: EventRefUpdated, RefName: string(r.Name), ObjectId: &oid, TimestampMs: nowMs()}
		}
	}
	for name := range w.prev {
		if _, ok := now[name]; !ok {
			out <- Event{Type: EventRefDeleted, RefName: string(name), TimestampMs: nowMs()}
		}
	}
	w.prev = now
}

func nowMs() int64 { return time.Now().UnixMilli() }
