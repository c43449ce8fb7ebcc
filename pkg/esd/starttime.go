package esd

// StartTimeBin is the event start time estimated by the TOF for tracks in
// one momentum interval.
type StartTimeBin struct {
	MinMom     float32 `json:"min_mom"`
	MaxMom     float32 `json:"max_mom"`
	StartTime  float32 `json:"t0"`
	Resolution float32 `json:"t0_res"`
	Mask       uint8   `json:"mask"`
}

// StartTimeTable answers start-time queries from the bins stored with the
// event.
type StartTimeTable []StartTimeBin

func (t StartTimeTable) NumMomentumBins() int {
	return len(t)
}

func (t StartTimeTable) MomentumBin(i int) (float32, float32) {
	return t[i].MinMom, t[i].MaxMom
}

// StartTime returns the values of the bin containing mom. Momenta outside
// every bin get the closest edge bin.
func (t StartTimeTable) StartTime(mom float32) (float32, float32, uint8) {
	if len(t) == 0 {
		return 0, 0, 0
	}
	for _, bin := range t {
		if mom >= bin.MinMom && mom < bin.MaxMom {
			return bin.StartTime, bin.Resolution, bin.Mask
		}
	}
	bin := t[len(t)-1]
	if mom < t[0].MinMom {
		bin = t[0]
	}
	return bin.StartTime, bin.Resolution, bin.Mask
}
