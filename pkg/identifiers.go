package converter

import (
	"math"

	"github.com/alice-run3/ao2d_go/pkg/esd"
	"golang.org/x/exp/constraints"
)

// Offsets are the global keys of the first object of each kind in the
// current event.
type Offsets struct {
	Collision int32
	Track     int32
	MuonTrack int32
	V0        int32
	Particle  int32
}

// EventCounts are the numbers of objects an accepted event consumed.
type EventCounts struct {
	Tracks     int
	MuonTracks int
	V0s        int
	Particles  int
}

// IdentifierAllocator turns per-event indices into run-wide keys. It is
// owned by one converter and starts at zero.
type IdentifierAllocator struct {
	offsets Offsets
}

func NewIdentifierAllocator() *IdentifierAllocator {
	return &IdentifierAllocator{}
}

func (a *IdentifierAllocator) Offsets() Offsets {
	return a.offsets
}

// Advance moves every offset past the objects of one accepted event. Either
// all offsets advance or, on overflow, none does.
func (a *IdentifierAllocator) Advance(counts EventCounts) error {
	next := a.offsets
	var err error
	if next.Collision, err = advance("collision", next.Collision, 1); err != nil {
		return err
	}
	if next.Track, err = advance("track", next.Track, counts.Tracks); err != nil {
		return err
	}
	if next.MuonTrack, err = advance("muon track", next.MuonTrack, counts.MuonTracks); err != nil {
		return err
	}
	if next.V0, err = advance("V0", next.V0, counts.V0s); err != nil {
		return err
	}
	if next.Particle, err = advance("particle", next.Particle, counts.Particles); err != nil {
		return err
	}
	a.offsets = next
	return nil
}

func advance(counter string, current int32, n int) (int32, error) {
	if n < 0 || int64(current)+int64(n) > math.MaxInt32 {
		return current, &ErrOffsetOverflow{Counter: counter, Current: current, Added: n}
	}
	return current + int32(n), nil
}

// offsetSigned adds off to the magnitude of v and keeps its sign. Zero counts
// as positive.
func offsetSigned[T constraints.Signed](v, off T) T {
	if v < 0 {
		return v - off
	}
	return v + off
}

// offsetIndex shifts valid indices and leaves the -1 "absent" marker alone.
func offsetIndex[T constraints.Signed](v, off T) T {
	if v < 0 {
		return v
	}
	return v + off
}

const (
	bunchCrossingBits = 12
	orbitBits         = 24
	periodBits        = 28
)

func fits[T constraints.Unsigned](v T, bits uint) bool {
	return uint64(v) < uint64(1)<<bits
}

// EventID packs the bunch crossing, orbit and period of a header into one
// identifier: BC in bits 0-11, orbit in bits 12-35, period in bits 36-63.
func EventID(h esd.Header) (uint64, error) {
	if !fits(h.BunchCrossing, bunchCrossingBits) {
		return 0, &ErrEventIDOverflow{Field: "bunch crossing", Value: h.BunchCrossing, Bits: bunchCrossingBits}
	}
	if !fits(h.Orbit, orbitBits) {
		return 0, &ErrEventIDOverflow{Field: "orbit", Value: h.Orbit, Bits: orbitBits}
	}
	if !fits(h.Period, periodBits) {
		return 0, &ErrEventIDOverflow{Field: "period", Value: h.Period, Bits: periodBits}
	}
	return uint64(h.BunchCrossing) |
		uint64(h.Orbit)<<bunchCrossingBits |
		uint64(h.Period)<<(bunchCrossingBits+orbitBits), nil
}

// unsafeEventID packs a header for log messages only, ignoring overflow.
func unsafeEventID(h esd.Header) uint64 {
	return uint64(h.BunchCrossing) |
		uint64(h.Orbit)<<bunchCrossingBits |
		uint64(h.Period)<<(bunchCrossingBits+orbitBits)
}
