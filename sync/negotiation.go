package sync

import (
	"fmt"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/objects"
	"github.com/clawvcs/claw/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServerVersion is the negotiation version string this core reports
// from Hello (spec §4.9's "server_version").
const ServerVersion = "claw-sync/1"

// Session is a correlation identifier for one client/server
// negotiation. Clone, Pull, PushRef and the Watcher neither take nor
// record one. Grounded on the teacher's convention of using google/uuid
// for opaque correlation ids.
type Session struct {
	ID uuid.UUID
}

// NewSession starts a fresh negotiation session.
func NewSession() Session {
	return Session{ID: uuid.New()}
}

func (s Session) String() string { return s.ID.String() }

// HelloResult is the response to hello() (spec §4.9).
type HelloResult struct {
	ServerVersion string
	Capabilities  []string
}

// Hello returns this core's negotiation capabilities. capabilities are
// opaque identifier strings a client can use for feature negotiation.
func Hello() HelloResult {
	return HelloResult{
		ServerVersion: ServerVersion,
		Capabilities:  []string{"refs", "fetch", "push", "update_refs", "watch"},
	}
}

// AdvertiseRefs lists every ref under prefix and the ObjectId it
// currently targets (spec §4.9).
func AdvertiseRefs(s *store.Store, prefix string) ([]store.RefAd, error) {
	full := prefix
	if full != "" {
		full = "refs/" + full
	} else {
		full = "refs"
	}
	return s.ListRefs(full)
}

// FetchResult is one streamed batch from fetch(): the objects the
// client doesn't have, in dependency-first order, plus how many of
// them the filter, the peer's have-digest, or a MaxBytes/MaxDepth
// budget caused to be dropped (counted rather than silently discarded — spec §4.8's filter never
// says a fetch must report what it dropped, but a transport that hides
// truncation from its caller would be indistinguishable from a
// complete transfer when it wasn't).
type FetchResult struct {
	Objects []FetchedObject
	Dropped int
}

// FetchedObject pairs an ObjectId with its encoded object, ready for a
// receiving store's Put (which re-derives and checks the hash itself).
type FetchedObject struct {
	Id  id.ObjectId
	Obj objects.Object
}

// Fetch computes reachable(want) \ reachable(have), applies filter,
// and returns the result in dependency-first order (spec §4.9). A
// trailing empty marker ending the stream is represented here simply
// by the returned slice's end, since this core models the operation
// directly rather than as wire bytes.
func Fetch(s *store.Store, log clawlog.Logger, want, have []id.ObjectId, filter *Filter) (*FetchResult, error) {
	if log == nil {
		log = clawlog.NewNop()
	}
	wantOrder, err := OrderedReachable(s, log, want)
	if err != nil {
		return nil, err
	}
	haveSet, err := Reachable(s, log, have)
	if err != nil {
		return nil, err
	}

	var maxBytes int64 = -1
	var maxDepth int = -1
	if filter != nil {
		if filter.MaxBytes != nil {
			maxBytes = *filter.MaxBytes
		}
		if filter.MaxDepth != nil {
			maxDepth = *filter.MaxDepth
		}
	}

	var depthOf map[id.ObjectId]int
	if maxDepth >= 0 {
		var err error
		depthOf, err = computeDepths(s, want)
		if err != nil {
			return nil, err
		}
	}

	result := &FetchResult{}
	var sentBytes int64

	for _, oid := range wantOrder {
		if haveSet[oid] {
			continue
		}
		if filter != nil && filter.PeerHave != nil {
			maybe, err := filter.PeerHave.MaybeHas(oid)
			if err != nil {
				return nil, err
			}
			if maybe {
				result.Dropped++
				log.Debug("fetch: peer have-digest reports maybe-present, dropping", zap.String("object_id", oid.String()))
				continue
			}
		}
		obj, err := s.Get(oid)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				continue
			}
			return nil, err
		}

		if maxDepth >= 0 && depthOf[oid] > maxDepth {
			result.Dropped++
			log.Debug("fetch: object beyond max_depth, dropping", zap.String("object_id", oid.String()))
			continue
		}

		if filter != nil && !filter.Include(obj) {
			result.Dropped++
			continue
		}

		payload := obj.Encode()
		if maxBytes >= 0 && sentBytes+int64(len(payload)) > maxBytes {
			result.Dropped++
			log.Debug("fetch: max_bytes budget exhausted, dropping", zap.String("object_id", oid.String()))
			continue
		}
		sentBytes += int64(len(payload))

		result.Objects = append(result.Objects, FetchedObject{Id: oid, Obj: obj})
	}
	return result, nil
}

// computeDepths assigns every object reachable from heads its BFS
// distance (in dependency hops) from the nearest head, for the
// max_depth fetch budget.
func computeDepths(s *store.Store, heads []id.ObjectId) (map[id.ObjectId]int, error) {
	depth := map[id.ObjectId]int{}
	var queue []id.ObjectId
	for _, h := range heads {
		if h.Zero() {
			continue
		}
		depth[h] = 0
		queue = append(queue, h)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		obj, err := s.Get(cur)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				continue
			}
			return nil, err
		}
		for _, e := range edges(obj) {
			if e.Zero() {
				continue
			}
			if d, ok := depth[e]; !ok || d > depth[cur]+1 {
				depth[e] = depth[cur] + 1
				queue = append(queue, e)
			}
		}
	}
	return depth, nil
}

// PushResult is the response to push(): the ids of every object that
// landed (spec §4.9).
type PushResult struct {
	Accepted []id.ObjectId
}

// Push validates and stores a dependency-first stream of objects: each
// object's COF-derived hash must match its claimed id, and every
// object it directly depends on must already be present (either
// already stored, or earlier in this same stream) before it is
// accepted. Objects sent out of dependency order are rejected rather
// than reordered, per spec §4.9's "Objects MUST be sent in
// dependency-first order."
func Push(s *store.Store, stream []FetchedObject) (*PushResult, error) {
	result := &PushResult{}
	landed := map[id.ObjectId]bool{}
	for _, fo := range stream {
		want := id.Hash(byte(fo.Obj.Kind()), fo.Obj.Encode())
		if want != fo.Id {
			return result, fmt.Errorf("claw: %w: object claims id %s, hashes to %s", clawerr.ErrTransferFailed, fo.Id, want)
		}
		for _, e := range edges(fo.Obj) {
			if e.Zero() || landed[e] || s.Has(e) {
				continue
			}
			return result, fmt.Errorf("claw: %w: object %s depends on missing referent %s", clawerr.ErrTransferFailed, fo.Id, e)
		}
		oid, err := s.Put(fo.Obj)
		if err != nil {
			return result, err
		}
		landed[oid] = true
		result.Accepted = append(result.Accepted, oid)
	}
	return result, nil
}

// UpdateRefsResult is the response to update_refs() (spec §4.9).
type UpdateRefsResult struct {
	Success bool
	Message string
}

// UpdateRefs applies a two-phase CAS batch of ref updates, delegating
// directly to store.UpdateRefsCas (spec §4.3, §4.9: "two-phase as in
// §4.3 — verify all then apply all").
func UpdateRefs(s *store.Store, updates []store.RefUpdate) UpdateRefsResult {
	if err := s.UpdateRefsCas(updates); err != nil {
		return UpdateRefsResult{Success: false, Message: err.Error()}
	}
	return UpdateRefsResult{Success: true}
}
