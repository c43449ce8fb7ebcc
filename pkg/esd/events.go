package esd

// Event is one reconstructed collision as delivered by the reconstruction.
// Cross references inside an event are plain indices into the slices of the
// same event.
type Event struct {
	RunNumber     int32          `json:"run_number"`
	Header        Header         `json:"header"`
	PrimaryVertex *Vertex        `json:"primary_vertex,omitempty"`
	StartTimes    []StartTimeBin `json:"start_times,omitempty"`
	Tracks        []Track        `json:"tracks,omitempty"`
	EMCALCells    CaloCells      `json:"emcal_cells"`
	PHOSCells     CaloCells      `json:"phos_cells"`
	EMCALTriggers []CaloTrigger  `json:"emcal_triggers,omitempty"`
	MuonTracks    []MuonTrack    `json:"muon_tracks,omitempty"`
	MuonClusters  []MuonCluster  `json:"muon_clusters,omitempty"`
	ZDC           *ZDC           `json:"zdc,omitempty"`
	VZERO         *VZERO         `json:"vzero,omitempty"`
	V0s           []V0           `json:"v0s,omitempty"`
	Cascades      []Cascade      `json:"cascades,omitempty"`
	TOFClusters   []TOFCluster   `json:"tof_clusters,omitempty"`
	MC            *MCEvent       `json:"mc,omitempty"`
}

type Header struct {
	BunchCrossing uint32 `json:"bunch_crossing"`
	Orbit         uint32 `json:"orbit"`
	Period        uint32 `json:"period"`
}

type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Track holds the barrel track parameters at the reference point.
// Covariance uses the external-parameter ordering: YY, ZY, ZZ, SnpY, SnpZ,
// SnpSnp, TglY, TglZ, TglSnp, TglTgl, 1PtY, 1PtZ, 1PtSnp, 1PtTgl, 1Pt1Pt.
type Track struct {
	X                float64     `json:"x"`
	Alpha            float64     `json:"alpha"`
	Y                float64     `json:"y"`
	Z                float64     `json:"z"`
	Snp              float64     `json:"snp"`
	Tgl              float64     `json:"tgl"`
	Signed1Pt        float64     `json:"signed_1pt"`
	Covariance       [15]float64 `json:"covariance"`
	TPCInnerP        *float64    `json:"tpc_inner_p,omitempty"`
	Status           uint64      `json:"status"`
	ITSClusterMap    uint8       `json:"its_cluster_map"`
	ITSNcls          uint8       `json:"its_ncls"`
	TPCNcls          uint16      `json:"tpc_ncls"`
	TRDNtracklets    uint8       `json:"trd_ntracklets"`
	ITSChi2          float64     `json:"its_chi2"`
	TPCChi2          float64     `json:"tpc_chi2"`
	TRDChi2          float64     `json:"trd_chi2"`
	TOFChi2          float64     `json:"tof_chi2"`
	TPCSignal        float64     `json:"tpc_signal"`
	TRDSignal        float64     `json:"trd_signal"`
	TOFSignal        float64     `json:"tof_signal"`
	IntegratedLength float64     `json:"integrated_length"`
	TOFClusters      []int32     `json:"tof_clusters,omitempty"`
	Label            int32       `json:"label"`
	TOFLabel         [3]int32    `json:"tof_label"`
}

// CaloCells is the cell list of one calorimeter. Type tags the detector and
// is common to every cell of the list.
type CaloCells struct {
	Type  int8       `json:"type"`
	Cells []CaloCell `json:"cells,omitempty"`
}

type CaloCell struct {
	Number    int16   `json:"number"`
	Amplitude float64 `json:"amplitude"`
	Time      float64 `json:"time"`
	HighGain  bool    `json:"high_gain"`
	MCLabel   int32   `json:"mc_label"`
	EFrac     float64 `json:"efrac"`
}

type CaloTrigger struct {
	Column      int32   `json:"col"`
	Row         int32   `json:"row"`
	L0Amplitude float32 `json:"l0_amplitude"`
	L0Time      float32 `json:"l0_time"`
	NL0Times    int32   `json:"n_l0_times"`
	TriggerBits int32   `json:"trigger_bits"`
	L1TimeSum   int32   `json:"l1_time_sum"`
}

// MuonTrack references its clusters by MuonCluster.ID.
type MuonTrack struct {
	InverseBendingMomentum float64       `json:"inverse_bending_momentum"`
	ThetaX                 float64       `json:"theta_x"`
	ThetaY                 float64       `json:"theta_y"`
	Z                      float64       `json:"z"`
	BendingCoor            float64       `json:"bending_coor"`
	NonBendingCoor         float64       `json:"non_bending_coor"`
	Covariances            [5][5]float64 `json:"covariances"`
	Chi2                   float64       `json:"chi2"`
	Chi2MatchTrigger       float64       `json:"chi2_match_trigger"`
	ClusterIDs             []uint32      `json:"cluster_ids,omitempty"`
}

type MuonCluster struct {
	ID     uint32  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	ErrX   float64 `json:"err_x"`
	ErrY   float64 `json:"err_y"`
	Charge float64 `json:"charge"`
	Chi2   float64 `json:"chi2"`
}

// FindMuonCluster returns the cluster with the given id or nil.
func (e *Event) FindMuonCluster(id uint32) *MuonCluster {
	for i := range e.MuonClusters {
		if e.MuonClusters[i].ID == id {
			return &e.MuonClusters[i]
		}
	}
	return nil
}

type ZDC struct {
	ZEM1Energy       float32        `json:"zem1_energy"`
	ZEM2Energy       float32        `json:"zem2_energy"`
	ZNCTowerEnergy   [5]float32     `json:"znc_tower_energy"`
	ZNATowerEnergy   [5]float32     `json:"zna_tower_energy"`
	ZPCTowerEnergy   [5]float32     `json:"zpc_tower_energy"`
	ZPATowerEnergy   [5]float32     `json:"zpa_tower_energy"`
	ZNCTowerEnergyLR [5]float32     `json:"znc_tower_energy_lr"`
	ZNATowerEnergyLR [5]float32     `json:"zna_tower_energy_lr"`
	ZPCTowerEnergyLR [5]float32     `json:"zpc_tower_energy_lr"`
	ZPATowerEnergyLR [5]float32     `json:"zpa_tower_energy_lr"`
	TDCCorrected     [32][4]float32 `json:"tdc_corrected"`
	ZNAHit           bool           `json:"zna_hit"`
	ZNCHit           bool           `json:"znc_hit"`
	ZPAHit           bool           `json:"zpa_hit"`
	ZPCHit           bool           `json:"zpc_hit"`
	ZEM1Hit          bool           `json:"zem1_hit"`
	ZEM2Hit          bool           `json:"zem2_hit"`
}

const VZEROChannels = 64

type VZERO struct {
	Adc   [VZEROChannels]float32 `json:"adc"`
	Time  [VZEROChannels]float32 `json:"time"`
	Width [VZEROChannels]float32 `json:"width"`
}

// V0 daughter indices point into Event.Tracks. The sign of an index carries
// a reconstruction flag and must be kept.
type V0 struct {
	PositiveIndex int32 `json:"pindex"`
	NegativeIndex int32 `json:"nindex"`
	OnTheFly      bool  `json:"on_the_fly"`
}

// Cascade stores the daughter pair of its V0, not the V0 index.
type Cascade struct {
	PositiveIndex int32 `json:"pindex"`
	NegativeIndex int32 `json:"nindex"`
	BachelorIndex int32 `json:"bindex"`
	OnTheFly      bool  `json:"on_the_fly"`
}

type TOFCluster struct {
	Channel int32      `json:"channel"`
	ToT     float32    `json:"tot"`
	Matches []TOFMatch `json:"matches,omitempty"`
}

type TOFMatch struct {
	TrackIndex int32   `json:"track_index"`
	Dx         float32 `json:"dx"`
	Dz         float32 `json:"dz"`
	Length     float32 `json:"length"`
}

type MCEvent struct {
	Vertex    *Vertex          `json:"vertex,omitempty"`
	Generator *GeneratorHeader `json:"generator,omitempty"`
	Particles []Particle       `json:"particles,omitempty"`
}

// Particle mother and daughter entries are indices into MCEvent.Particles,
// -1 when absent.
type Particle struct {
	PdgCode   int32    `json:"pdg"`
	Mothers   [2]int32 `json:"mothers"`
	Daughters [2]int32 `json:"daughters"`
	Px        float64  `json:"px"`
	Py        float64  `json:"py"`
	Pz        float64  `json:"pz"`
	Vx        float64  `json:"vx"`
	Vy        float64  `json:"vy"`
	Vz        float64  `json:"vz"`
	Vt        float64  `json:"vt"`
}

// GeneratorHeader describes the event generator. Cocktail headers list the
// headers of the generators they combine.
type GeneratorHeader struct {
	Kind    GeneratorKind     `json:"kind"`
	Name    string            `json:"name,omitempty"`
	Headers []GeneratorHeader `json:"headers,omitempty"`
}
