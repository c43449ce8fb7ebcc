package converter

import (
	"sort"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

const (
	packedIndexBits = 31
	packedIndexMask = 1<<packedIndexBits - 1
)

// PackDaughters combines the positive and negative daughter indices of a V0
// into one sortable key.
func PackDaughters(pos, neg int32) (uint64, error) {
	if pos < 0 {
		return 0, &ErrIndexOverflow{Index: int64(pos)}
	}
	if neg < 0 {
		return 0, &ErrIndexOverflow{Index: int64(neg)}
	}
	return uint64(pos)<<packedIndexBits | uint64(neg), nil
}

func UnpackDaughters(key uint64) (int32, int32) {
	return int32(key >> packedIndexBits & packedIndexMask), int32(key & packedIndexMask)
}

type v0Key struct {
	key      uint64
	position int32
}

// V0Index finds the V0 built from a given daughter pair among the V0s
// written for one event.
type V0Index struct {
	entries []v0Key
	offset  int32
}

// NewV0Index indexes the emitted V0s of an event. Positions are the row
// order of the V0s in the output, offset is the V0 offset of the event.
// V0s with a sign-flagged daughter keep their position but cannot be matched.
func NewV0Index(v0s []esd.V0, offset int32) *V0Index {
	entries := make([]v0Key, 0, len(v0s))
	for i, v0 := range v0s {
		key, err := PackDaughters(v0.PositiveIndex, v0.NegativeIndex)
		if err != nil {
			continue
		}
		entries = append(entries, v0Key{key: key, position: int32(i)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})
	return &V0Index{entries: entries, offset: offset}
}

// Lookup returns the global V0 key for the daughter pair, or false when no
// emitted V0 has exactly these daughters. Duplicated pairs resolve to the
// first V0 in output order.
func (x *V0Index) Lookup(pos, neg int32) (int32, bool) {
	target, err := PackDaughters(pos, neg)
	if err != nil {
		return 0, false
	}
	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].key >= target
	})
	if i == len(x.entries) || x.entries[i].key != target {
		return 0, false
	}
	return x.entries[i].position + x.offset, true
}

func (x *V0Index) Len() int {
	return len(x.entries)
}
