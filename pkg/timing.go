package converter

import "math"

// MaxTimingBins is the largest number of momentum bins the event time can
// be computed from.
const MaxTimingBins = 10

// EventTime holds the event start time combined over momentum bins.
type EventTime struct {
	Time       float32
	Resolution float32
	Mask       uint8
}

// ComputeEventTime combines the start time of every momentum bin, queried
// at the bin centre, into a mean weighted by 1/res². The resolution is
// sqrt(9/10) times the mean bin resolution. Mask bits are taken from the
// last bin: bit 0 for mask&1, bit 1 for mask&2, bit 2 for mask&3.
func ComputeEventTime(tr TimingResponse) (EventTime, error) {
	n := tr.NumMomentumBins()
	if n > MaxTimingBins {
		return EventTime{}, &ErrTooManyTimingBins{Bins: n}
	}
	if n == 0 {
		return EventTime{}, nil
	}

	var sumTime, sumWeight, sumRes float64
	var mask uint8
	for i := 0; i < n; i++ {
		lo, hi := tr.MomentumBin(i)
		t0, res, m := tr.StartTime((lo + hi) / 2)
		if !(res > 0) {
			return EventTime{}, &ErrInvalidTimeResolution{Bin: i, Resolution: res}
		}
		w := 1 / (float64(res) * float64(res))
		sumTime += w * float64(t0)
		sumWeight += w
		sumRes += float64(res)
		mask = timeMask(m)
	}

	return EventTime{
		Time:       float32(sumTime / sumWeight),
		Resolution: float32(math.Sqrt(9./10.) * sumRes / float64(n)),
		Mask:       mask,
	}, nil
}

func timeMask(m uint8) uint8 {
	var mask uint8
	if m&0x1 != 0 {
		mask |= 1 << 0
	}
	if m&0x2 != 0 {
		mask |= 1 << 1
	}
	if m&0x3 != 0 {
		mask |= 1 << 2
	}
	return mask
}
