package converter

import (
	"fmt"
	"math"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

// Diagnostics counts the candidates an event dropped without error.
type Diagnostics struct {
	OnTheFlyV0s       int
	OnTheFlyCascades  int
	UnmatchedCascades int
}

func (d *Diagnostics) add(o Diagnostics) {
	d.OnTheFlyV0s += o.OnTheFlyV0s
	d.OnTheFlyCascades += o.OnTheFlyCascades
	d.UnmatchedCascades += o.UnmatchedCascades
}

// EventRows holds every row produced by one event.
type EventRows struct {
	Accepted     bool
	Event        []EventRow
	Tracks       []TrackRow
	Calo         []CaloRow
	CaloTriggers []CaloTriggerRow
	Muons        []MuonRow
	MuonClusters []MuonClusterRow
	Zdc          []ZdcRow
	Vzero        []VzeroRow
	V0s          []V0Row
	Cascades     []CascadeRow
	TOF          []TOFRow
	Kinematics   []KineRow
	Counts       EventCounts
	Diagnostics  Diagnostics
}

func records[T Record](rows []T) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// Records returns the rows of one table.
func (e *EventRows) Records(kind TableKind) []Record {
	switch kind {
	case Events:
		return records(e.Event)
	case Tracks:
		return records(e.Tracks)
	case Calo:
		return records(e.Calo)
	case CaloTrigger:
		return records(e.CaloTriggers)
	case Muon:
		return records(e.Muons)
	case MuonCls:
		return records(e.MuonClusters)
	case Zdc:
		return records(e.Zdc)
	case Vzero:
		return records(e.Vzero)
	case V0s:
		return records(e.V0s)
	case Cascades:
		return records(e.Cascades)
	case TOF:
		return records(e.TOF)
	case Kinematics:
		return records(e.Kinematics)
	}
	return nil
}

// Flattener turns one event into table rows.
type Flattener struct {
	mode     TaskMode
	scope    IndexScope
	services Services
}

func NewFlattener(mode TaskMode, scope IndexScope, services Services) *Flattener {
	return &Flattener{
		mode:     mode,
		scope:    scope,
		services: services.withDefaults(),
	}
}

// Flatten produces the rows of ev using the offsets of the current event.
// A rejected event yields a result with Accepted false and no rows.
func (f *Flattener) Flatten(ev *esd.Event, off Offsets) (*EventRows, error) {
	if f.services.Filter != nil && !f.services.Filter.Accept(ev) {
		return &EventRows{}, nil
	}
	if ev.PrimaryVertex == nil {
		return nil, &ErrMissingVertex{EventID: unsafeEventID(ev.Header)}
	}
	if f.mode == TaskModeMC {
		if ev.MC == nil {
			return nil, &ErrMissingMC{EventID: unsafeEventID(ev.Header), What: "MC event"}
		}
		if ev.MC.Vertex == nil {
			return nil, &ErrMissingMC{EventID: unsafeEventID(ev.Header), What: "MC vertex"}
		}
	}

	rows := &EventRows{Accepted: true}
	steps := []func(*esd.Event, Offsets, *EventRows) error{
		f.flattenEvent,
		f.flattenTracks,
		f.flattenCalo,
		f.flattenCaloTriggers,
		f.flattenMuons,
		f.flattenZdc,
		f.flattenVzero,
		f.flattenV0s,
		f.flattenKinematics,
	}
	for _, step := range steps {
		if err := step(ev, off, rows); err != nil {
			return nil, err
		}
	}

	rows.Counts = EventCounts{
		Tracks:     len(ev.Tracks),
		MuonTracks: len(ev.MuonTracks),
		V0s:        len(rows.V0s),
	}
	if f.mode == TaskModeMC {
		rows.Counts.Particles = len(ev.MC.Particles)
	}
	return rows, nil
}

func (f *Flattener) flattenEvent(ev *esd.Event, off Offsets, rows *EventRows) error {
	id, err := EventID(ev.Header)
	if err != nil {
		return fmt.Errorf("error packing event identifier: %w", err)
	}
	evtTime, err := ComputeEventTime(f.services.Timing(ev))
	if err != nil {
		return fmt.Errorf("event %d: %w", id, err)
	}

	row := EventRow{
		EventID:       id,
		X:             float32(ev.PrimaryVertex.X),
		Y:             float32(ev.PrimaryVertex.Y),
		Z:             float32(ev.PrimaryVertex.Z),
		EventTime:     evtTime.Time,
		EventTimeRes:  evtTime.Resolution,
		EventTimeMask: evtTime.Mask,
	}
	if f.mode == TaskModeMC {
		row.GeneratorID = GeneratorMask(ev.MC.Generator)
		row.MCVtxX = float32(ev.MC.Vertex.X)
		row.MCVtxY = float32(ev.MC.Vertex.Y)
		row.MCVtxZ = float32(ev.MC.Vertex.Z)
	}
	rows.Event = append(rows.Event, row)
	return nil
}

func chi2PerCluster[N uint8 | uint16](chi2 float64, ncls N) float32 {
	if ncls == 0 {
		return 0
	}
	return float32(chi2 / float64(ncls))
}

func (f *Flattener) label(l int32, off Offsets) int32 {
	if f.scope == IndexScopeRun {
		return offsetSigned(l, off.Particle)
	}
	return l
}

func (f *Flattener) flattenTracks(ev *esd.Event, off Offsets, rows *EventRows) error {
	rows.Tracks = make([]TrackRow, 0, len(ev.Tracks))
	for i := range ev.Tracks {
		track := &ev.Tracks[i]
		row := TrackRow{
			CollisionID:   off.Collision,
			X:             float32(track.X),
			Alpha:         float32(track.Alpha),
			Y:             float32(track.Y),
			Z:             float32(track.Z),
			Snp:           float32(track.Snp),
			Tgl:           float32(track.Tgl),
			Signed1Pt:     float32(track.Signed1Pt),
			Flags:         track.Status,
			ITSClusterMap: track.ITSClusterMap,
			TPCNcls:       track.TPCNcls,
			TRDNtracklets: track.TRDNtracklets,
			ITSChi2Ncl:    chi2PerCluster(track.ITSChi2, track.ITSNcls),
			TPCChi2Ncl:    chi2PerCluster(track.TPCChi2, track.TPCNcls),
			TRDChi2:       float32(track.TRDChi2),
			TOFChi2:       float32(track.TOFChi2),
			TPCSignal:     float32(track.TPCSignal),
			TRDSignal:     float32(track.TRDSignal),
			TOFSignal:     float32(track.TOFSignal),
			Length:        float32(track.IntegratedLength),
		}
		for j, c := range track.Covariance {
			row.Covariance[j] = float32(c)
		}
		// 0 when the track did not reach the TPC
		if track.TPCInnerP != nil {
			row.TPCInnerP = float32(*track.TPCInnerP)
		}
		if f.mode == TaskModeMC {
			row.Label = f.label(track.Label, off)
			for j, l := range track.TOFLabel {
				row.TOFLabel[j] = f.label(l, off)
			}
		}
		rows.Tracks = append(rows.Tracks, row)

		if err := flattenTOFHits(ev, int32(i), row.Length, off, rows); err != nil {
			return err
		}
	}
	return nil
}

func flattenTOFHits(ev *esd.Event, trackIndex int32, length float32, off Offsets, rows *EventRows) error {
	track := &ev.Tracks[trackIndex]
	for _, cls := range track.TOFClusters {
		if cls < 0 || int(cls) >= len(ev.TOFClusters) {
			return &ErrDanglingReference{From: fmt.Sprintf("track %d", trackIndex), To: "TOF cluster", Index: int64(cls)}
		}
		cluster := &ev.TOFClusters[cls]
		row := TOFRow{
			TrackID:     off.Track + trackIndex,
			Channel:     cluster.Channel,
			NClusters:   int16(len(track.TOFClusters)),
			ToT:         cluster.ToT,
			LengthRatio: -1,
		}
		for _, match := range cluster.Matches {
			if match.TrackIndex != trackIndex {
				continue
			}
			row.Dx = match.Dx
			row.Dz = match.Dz
			if length > 0 {
				row.LengthRatio = match.Length / length
			}
			break
		}
		rows.TOF = append(rows.TOF, row)
	}
	return nil
}

func caloRows(cells esd.CaloCells, collision int32) []CaloRow {
	out := make([]CaloRow, len(cells.Cells))
	for i, cell := range cells.Cells {
		var cellType int8 = 1
		if cell.HighGain {
			cellType = 0
		}
		out[i] = CaloRow{
			CollisionID: collision,
			CellNumber:  cell.Number,
			Amplitude:   float32(cell.Amplitude),
			Time:        float32(cell.Time),
			CellType:    cellType,
			Type:        cells.Type,
		}
	}
	return out
}

func (f *Flattener) flattenCalo(ev *esd.Event, off Offsets, rows *EventRows) error {
	rows.Calo = append(caloRows(ev.EMCALCells, off.Collision), caloRows(ev.PHOSCells, off.Collision)...)
	return nil
}

const emcalTriggerType = 1

func (f *Flattener) flattenCaloTriggers(ev *esd.Event, off Offsets, rows *EventRows) error {
	rows.CaloTriggers = make([]CaloTriggerRow, 0, len(ev.EMCALTriggers))
	for _, trg := range ev.EMCALTriggers {
		fastOr, err := f.services.Trigger.AbsFastORIndex(trg.Column, trg.Row)
		if err != nil {
			return err
		}
		if fastOr < 0 || fastOr > math.MaxInt16 {
			return &ErrDanglingReference{From: "calorimeter trigger", To: "FastOR index", Index: int64(fastOr)}
		}
		rows.CaloTriggers = append(rows.CaloTriggers, CaloTriggerRow{
			CollisionID: off.Collision,
			FastOrAbsID: int16(fastOr),
			L0Amplitude: trg.L0Amplitude,
			L1TimeSum:   float32(trg.L1TimeSum),
			NL0Times:    int8(trg.NL0Times),
			TriggerBits: trg.TriggerBits,
			Type:        emcalTriggerType,
		})
	}
	return nil
}

func (f *Flattener) flattenMuons(ev *esd.Event, off Offsets, rows *EventRows) error {
	rows.Muons = make([]MuonRow, 0, len(ev.MuonTracks))
	for imu := range ev.MuonTracks {
		mu := &ev.MuonTracks[imu]
		row := MuonRow{
			CollisionID:            off.Collision,
			InverseBendingMomentum: float32(mu.InverseBendingMomentum),
			ThetaX:                 float32(mu.ThetaX),
			ThetaY:                 float32(mu.ThetaY),
			Z:                      float32(mu.Z),
			BendingCoor:            float32(mu.BendingCoor),
			NonBendingCoor:         float32(mu.NonBendingCoor),
			Chi2:                   float32(mu.Chi2),
			Chi2MatchTrigger:       float32(mu.Chi2MatchTrigger),
		}
		// lower triangle, row by row
		for i := 0; i < 5; i++ {
			for j := 0; j <= i; j++ {
				row.Covariances[i*(i+1)/2+j] = float32(mu.Covariances[i][j])
			}
		}
		rows.Muons = append(rows.Muons, row)

		muTrackID := off.MuonTrack + int32(imu)
		for _, id := range mu.ClusterIDs {
			cls := ev.FindMuonCluster(id)
			if cls == nil {
				return &ErrDanglingReference{From: fmt.Sprintf("muon track %d", imu), To: "muon cluster", Index: int64(id)}
			}
			rows.MuonClusters = append(rows.MuonClusters, MuonClusterRow{
				MuTrackID: muTrackID,
				X:         float32(cls.X),
				Y:         float32(cls.Y),
				Z:         float32(cls.Z),
				ErrX:      float32(cls.ErrX),
				ErrY:      float32(cls.ErrY),
				Charge:    float32(cls.Charge),
				Chi2:      float32(cls.Chi2),
			})
		}
	}
	return nil
}

// ZDC fired bits
const (
	firedZNA = 1 << iota
	firedZNC
	firedZPA
	firedZPC
	firedZEM1
	firedZEM2
)

func (f *Flattener) flattenZdc(ev *esd.Event, off Offsets, rows *EventRows) error {
	zdc := ev.ZDC
	if zdc == nil {
		return nil
	}
	row := ZdcRow{
		CollisionID:      off.Collision,
		ZEM1Energy:       zdc.ZEM1Energy,
		ZEM2Energy:       zdc.ZEM2Energy,
		ZNCTowerEnergy:   zdc.ZNCTowerEnergy,
		ZNATowerEnergy:   zdc.ZNATowerEnergy,
		ZPCTowerEnergy:   zdc.ZPCTowerEnergy,
		ZPATowerEnergy:   zdc.ZPATowerEnergy,
		ZNCTowerEnergyLR: zdc.ZNCTowerEnergyLR,
		ZNATowerEnergyLR: zdc.ZNATowerEnergyLR,
		ZPCTowerEnergyLR: zdc.ZPCTowerEnergyLR,
		ZPATowerEnergyLR: zdc.ZPATowerEnergyLR,
	}
	for i, channel := range zdc.TDCCorrected {
		copy(row.TDCCorrected[i*4:], channel[:])
	}
	hits := []struct {
		hit bool
		bit uint8
	}{
		{zdc.ZNAHit, firedZNA},
		{zdc.ZNCHit, firedZNC},
		{zdc.ZPAHit, firedZPA},
		{zdc.ZPCHit, firedZPC},
		{zdc.ZEM1Hit, firedZEM1},
		{zdc.ZEM2Hit, firedZEM2},
	}
	for _, h := range hits {
		if h.hit {
			row.Fired |= h.bit
		}
	}
	rows.Zdc = append(rows.Zdc, row)
	return nil
}

func (f *Flattener) flattenVzero(ev *esd.Event, off Offsets, rows *EventRows) error {
	if ev.VZERO == nil {
		return nil
	}
	rows.Vzero = append(rows.Vzero, VzeroRow{
		CollisionID: off.Collision,
		Adc:         ev.VZERO.Adc,
		Time:        ev.VZERO.Time,
		Width:       ev.VZERO.Width,
	})
	return nil
}

// flattenV0s writes the offline V0s and the cascades built on them.
func (f *Flattener) flattenV0s(ev *esd.Event, off Offsets, rows *EventRows) error {
	offline := make([]esd.V0, 0, len(ev.V0s))
	for _, v0 := range ev.V0s {
		if v0.OnTheFly {
			rows.Diagnostics.OnTheFlyV0s++
			continue
		}
		offline = append(offline, v0)
		rows.V0s = append(rows.V0s, V0Row{
			PosTrackID: offsetSigned(v0.PositiveIndex, off.Track),
			NegTrackID: offsetSigned(v0.NegativeIndex, off.Track),
		})
	}

	var index *V0Index
	for _, cas := range ev.Cascades {
		if cas.OnTheFly {
			rows.Diagnostics.OnTheFlyCascades++
			continue
		}
		if len(offline) == 0 {
			rows.Diagnostics.UnmatchedCascades++
			continue
		}
		if index == nil {
			index = NewV0Index(offline, off.V0)
		}
		v0ID, ok := index.Lookup(cas.PositiveIndex, cas.NegativeIndex)
		if !ok {
			rows.Diagnostics.UnmatchedCascades++
			continue
		}
		rows.Cascades = append(rows.Cascades, CascadeRow{
			V0ID:       v0ID,
			BachelorID: cas.BachelorIndex + off.Track,
		})
	}
	return nil
}

func (f *Flattener) flattenKinematics(ev *esd.Event, off Offsets, rows *EventRows) error {
	if f.mode != TaskModeMC {
		return nil
	}
	particles := ev.MC.Particles
	rows.Kinematics = make([]KineRow, len(particles))
	for i, p := range particles {
		row := KineRow{
			CollisionID: off.Collision,
			PdgCode:     p.PdgCode,
			Mother:      p.Mothers,
			Daughter:    p.Daughters,
			Px:          float32(p.Px),
			Py:          float32(p.Py),
			Pz:          float32(p.Pz),
			Vx:          float32(p.Vx),
			Vy:          float32(p.Vy),
			Vz:          float32(p.Vz),
			Vt:          float32(p.Vt),
		}
		if f.scope == IndexScopeRun {
			for j := range row.Mother {
				row.Mother[j] = offsetIndex(row.Mother[j], off.Particle)
				row.Daughter[j] = offsetIndex(row.Daughter[j], off.Particle)
			}
		}
		rows.Kinematics[i] = row
	}
	return nil
}
