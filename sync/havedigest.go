package sync

import (
	"github.com/clawvcs/claw/bloom"
	"github.com/clawvcs/claw/id"
)

// HaveDigest is a compact, probabilistic encoding of a have-set: a
// 4-way Bloom filter over the caller's local ObjectIds, for a client
// with too large a have-set to enumerate on the wire to hand to a
// peer as an approximation of reachable(have) instead. It is never
// authoritative — a false positive on MaybeHas means an object may be
// sent (or skipped) incorrectly — so Fetch only consults it as an
// additional pre-filter alongside, never instead of, an explicit have
// list.
type HaveDigest struct {
	region []byte
}

// haveDigestBitsPerElement and haveDigestK were picked for roughly a
// 1% false-positive rate at the filter's designed load factor.
const (
	haveDigestBitsPerElement = 10
	haveDigestK              = 7
)

// BuildHaveDigest encodes have as a HaveDigest sized for len(have)
// elements. An empty have-set yields a digest that MaybeHas always
// reports false for.
func BuildHaveDigest(have []id.ObjectId) (HaveDigest, error) {
	leafCount := uint64(len(have))
	if leafCount == 0 {
		leafCount = 1
	}
	mBits := bloom.MBitsSafeCast(bloom.MBitsV1(leafCount, haveDigestBitsPerElement))
	if mBits == 0 {
		return HaveDigest{}, bloom.ErrMBitsOverflow
	}
	region := make([]byte, bloom.RegionBytesV1(mBits))
	if err := bloom.InitV1(region, leafCount, haveDigestBitsPerElement, haveDigestK); err != nil {
		return HaveDigest{}, err
	}
	d := HaveDigest{region: region}
	for _, oid := range have {
		if err := d.insert(oid); err != nil {
			return HaveDigest{}, err
		}
	}
	return d, nil
}

func (d HaveDigest) insert(oid id.ObjectId) error {
	for filterIdx := uint8(0); filterIdx < bloom.Filters; filterIdx++ {
		if err := bloom.InsertV1(d.region, filterIdx, oid[:]); err != nil {
			return err
		}
	}
	return nil
}

// MaybeHas reports whether oid might be in the encoded have-set: false
// means definitely absent, true means "maybe present, maybe a false
// positive." It checks all 4 parallel filters and requires every one
// to agree, tightening the overall false-positive rate beyond any
// single filter's.
func (d HaveDigest) MaybeHas(oid id.ObjectId) (bool, error) {
	if len(d.region) == 0 {
		return false, nil
	}
	for filterIdx := uint8(0); filterIdx < bloom.Filters; filterIdx++ {
		ok, err := bloom.MaybeContainsV1(d.region, filterIdx, oid[:])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
