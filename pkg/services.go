package converter

import (
	"math"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

// TimingResponse gives the TOF event start time per momentum bin.
type TimingResponse interface {
	NumMomentumBins() int
	MomentumBin(i int) (min, max float32)
	StartTime(mom float32) (t0, res float32, mask uint8)
}

// TimingProvider returns the timing response valid for one event.
type TimingProvider func(ev *esd.Event) TimingResponse

// EventStartTimes reads the start times stored with the event.
func EventStartTimes(ev *esd.Event) TimingResponse {
	return esd.StartTimeTable(ev.StartTimes)
}

// EventFilter decides whether an event is written.
type EventFilter interface {
	Accept(ev *esd.Event) bool
}

// EventCuts accepts events with a vertex within MaxVertexZ of the nominal
// interaction point and at least MinTracks barrel tracks.
type EventCuts struct {
	MaxVertexZ float64
	MinTracks  int
}

func (c EventCuts) Accept(ev *esd.Event) bool {
	if ev.PrimaryVertex == nil {
		return false
	}
	if math.Abs(ev.PrimaryVertex.Z) > c.MaxVertexZ {
		return false
	}
	return len(ev.Tracks) >= c.MinTracks
}

// TriggerMapping converts a trigger position into the absolute FastOR index.
type TriggerMapping interface {
	AbsFastORIndex(col, row int32) (int32, error)
}

// EMCALTriggerMapping numbers FastORs row by row over the full detector
// width.
type EMCALTriggerMapping struct {
	Columns int32
	Rows    int32
}

func DefaultTriggerMapping() EMCALTriggerMapping {
	return EMCALTriggerMapping{Columns: 48, Rows: 104}
}

func (m EMCALTriggerMapping) AbsFastORIndex(col, row int32) (int32, error) {
	if col < 0 || col >= m.Columns || row < 0 || row >= m.Rows {
		return 0, &ErrDanglingReference{From: "calorimeter trigger", To: "FastOR position", Index: int64(row)*int64(m.Columns) + int64(col)}
	}
	return row*m.Columns + col, nil
}

// Services bundles the external collaborators of the flattener. Nil fields
// select the defaults.
type Services struct {
	Timing  TimingProvider
	Filter  EventFilter
	Trigger TriggerMapping
}

func (s Services) withDefaults() Services {
	if s.Timing == nil {
		s.Timing = EventStartTimes
	}
	if s.Trigger == nil {
		s.Trigger = DefaultTriggerMapping()
	}
	return s
}
