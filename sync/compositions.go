package sync

import (
	"fmt"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"github.com/clawvcs/claw/internal/clawlog"
	"github.com/clawvcs/claw/store"
)

// Clone populates local from remote: hello, advertise every ref,
// fetch everything advertised with have=∅, set every local ref, then
// point HEAD at heads/main (or the first advertised ref if that one is
// absent) (spec §4.9).
func Clone(remote, local *store.Store, log clawlog.Logger, filter *Filter) error {
	_ = Hello()

	refs, err := AdvertiseRefs(remote, "")
	if err != nil {
		return err
	}
	want := make([]id.ObjectId, 0, len(refs))
	for _, r := range refs {
		want = append(want, r.Value)
	}

	fetched, err := Fetch(remote, log, want, nil, filter)
	if err != nil {
		return err
	}
	if _, err := Push(local, fetched.Objects); err != nil {
		return err
	}

	var updates []store.RefUpdate
	for _, r := range refs {
		name := store.RefName(r.Name)
		updates = append(updates, store.RefUpdate{Name: name, ExpectedOld: nil, New: r.Value, Force: true})
	}
	if res := UpdateRefs(local, updates); !res.Success {
		return fmt.Errorf("claw: %w: %s", clawerr.ErrNegotiationFailed, res.Message)
	}

	headRef := store.RefName("refs/heads/main")
	if _, err := local.ReadRef(headRef); err != nil {
		if len(refs) == 0 {
			return nil
		}
		headRef = store.RefName(refs[0].Name)
	}
	return local.SetHeadSymbolic(headRef)
}

// Pull fetches remote's tip for ref, fast-forwards local's ref to it
// (spec §4.9). The CAS in update_ref_cas enforces the fast-forward
// requirement unless the caller requested force.
func Pull(remote, local *store.Store, log clawlog.Logger, ref store.RefName, force bool) error {
	remoteTip, err := remote.ReadRef(ref)
	if err != nil {
		return err
	}

	var have []id.ObjectId
	localTip, err := local.ReadRef(ref)
	localExists := err == nil
	if err != nil && err != clawerr.ErrRefNotFound {
		return err
	}
	if localExists {
		have = append(have, localTip)
	}

	fetched, err := Fetch(remote, log, []id.ObjectId{remoteTip}, have, nil)
	if err != nil {
		return err
	}
	if _, err := Push(local, fetched.Objects); err != nil {
		return err
	}

	var expectedOld *id.ObjectId
	if localExists {
		expectedOld = &localTip
	}
	res := UpdateRefs(local, []store.RefUpdate{{Name: ref, ExpectedOld: expectedOld, New: remoteTip, Force: force}})
	if !res.Success {
		return fmt.Errorf("claw: %w: %s", clawerr.ErrNegotiationFailed, res.Message)
	}
	return nil
}

// PushRef computes reachable(local tip), pushes those objects to
// remote, learns remote's current value for ref via advertise_refs,
// then applies a CAS update_refs against that observed old value
// (spec §4.9).
func PushRef(local, remote *store.Store, log clawlog.Logger, ref store.RefName, force bool) error {
	localTip, err := local.ReadRef(ref)
	if err != nil {
		return err
	}

	ordered, err := OrderedReachable(local, log, []id.ObjectId{localTip})
	if err != nil {
		return err
	}
	var stream []FetchedObject
	for _, oid := range ordered {
		if remote.Has(oid) {
			continue
		}
		obj, err := local.Get(oid)
		if err != nil {
			if err == clawerr.ErrObjectNotFound {
				continue
			}
			return err
		}
		stream = append(stream, FetchedObject{Id: oid, Obj: obj})
	}
	if _, err := Push(remote, stream); err != nil {
		return err
	}

	refs, err := remote.ListRefs(string(ref))
	if err != nil {
		return err
	}
	var remoteOld *id.ObjectId
	for _, r := range refs {
		if r.Name == ref {
			v := r.Value
			remoteOld = &v
		}
	}

	res := UpdateRefs(remote, []store.RefUpdate{{Name: ref, ExpectedOld: remoteOld, New: localTip, Force: force}})
	if !res.Success {
		return fmt.Errorf("claw: %w: %s", clawerr.ErrNegotiationFailed, res.Message)
	}
	return nil
}
