package converter

// Record is one row of a table. Values returns one value per schema column,
// in schema order: scalars as their Go type, array columns as flat slices.
type Record interface {
	Values() []any
}

type EventRow struct {
	EventID       uint64
	X, Y, Z       float32
	EventTime     float32
	EventTimeRes  float32
	EventTimeMask uint8
	GeneratorID   int16
	MCVtxX        float32
	MCVtxY        float32
	MCVtxZ        float32
}

func (r EventRow) Values() []any {
	return []any{r.EventID, r.X, r.Y, r.Z, r.EventTime, r.EventTimeRes, r.EventTimeMask,
		r.GeneratorID, r.MCVtxX, r.MCVtxY, r.MCVtxZ}
}

type TrackRow struct {
	CollisionID   int32
	X             float32
	Alpha         float32
	Y             float32
	Z             float32
	Snp           float32
	Tgl           float32
	Signed1Pt     float32
	Covariance    [15]float32
	TPCInnerP     float32
	Flags         uint64
	ITSClusterMap uint8
	TPCNcls       uint16
	TRDNtracklets uint8
	ITSChi2Ncl    float32
	TPCChi2Ncl    float32
	TRDChi2       float32
	TOFChi2       float32
	TPCSignal     float32
	TRDSignal     float32
	TOFSignal     float32
	Length        float32
	Label         int32
	TOFLabel      [3]int32
}

func (r TrackRow) Values() []any {
	values := make([]any, 0, 41)
	values = append(values, r.CollisionID, r.X, r.Alpha, r.Y, r.Z, r.Snp, r.Tgl, r.Signed1Pt)
	for _, c := range r.Covariance {
		values = append(values, c)
	}
	return append(values, r.TPCInnerP, r.Flags, r.ITSClusterMap, r.TPCNcls, r.TRDNtracklets,
		r.ITSChi2Ncl, r.TPCChi2Ncl, r.TRDChi2, r.TOFChi2,
		r.TPCSignal, r.TRDSignal, r.TOFSignal, r.Length,
		r.Label, r.TOFLabel[:])
}

type CaloRow struct {
	CollisionID int32
	CellNumber  int16
	Amplitude   float32
	Time        float32
	CellType    int8
	Type        int8
}

func (r CaloRow) Values() []any {
	return []any{r.CollisionID, r.CellNumber, r.Amplitude, r.Time, r.CellType, r.Type}
}

type CaloTriggerRow struct {
	CollisionID int32
	FastOrAbsID int16
	L0Amplitude float32
	L1TimeSum   float32
	NL0Times    int8
	TriggerBits int32
	Type        int8
}

func (r CaloTriggerRow) Values() []any {
	return []any{r.CollisionID, r.FastOrAbsID, r.L0Amplitude, r.L1TimeSum, r.NL0Times, r.TriggerBits, r.Type}
}

type MuonRow struct {
	CollisionID            int32
	InverseBendingMomentum float32
	ThetaX                 float32
	ThetaY                 float32
	Z                      float32
	BendingCoor            float32
	NonBendingCoor         float32
	Covariances            [15]float32
	Chi2                   float32
	Chi2MatchTrigger       float32
}

func (r MuonRow) Values() []any {
	return []any{r.CollisionID, r.InverseBendingMomentum, r.ThetaX, r.ThetaY, r.Z,
		r.BendingCoor, r.NonBendingCoor, r.Covariances[:], r.Chi2, r.Chi2MatchTrigger}
}

type MuonClusterRow struct {
	MuTrackID int32
	X, Y, Z   float32
	ErrX      float32
	ErrY      float32
	Charge    float32
	Chi2      float32
}

func (r MuonClusterRow) Values() []any {
	return []any{r.MuTrackID, r.X, r.Y, r.Z, r.ErrX, r.ErrY, r.Charge, r.Chi2}
}

type ZdcRow struct {
	CollisionID      int32
	ZEM1Energy       float32
	ZEM2Energy       float32
	ZNCTowerEnergy   [5]float32
	ZNATowerEnergy   [5]float32
	ZPCTowerEnergy   [5]float32
	ZPATowerEnergy   [5]float32
	ZNCTowerEnergyLR [5]float32
	ZNATowerEnergyLR [5]float32
	ZPCTowerEnergyLR [5]float32
	ZPATowerEnergyLR [5]float32
	TDCCorrected     [32 * 4]float32
	Fired            uint8
}

func (r ZdcRow) Values() []any {
	return []any{r.CollisionID, r.ZEM1Energy, r.ZEM2Energy,
		r.ZNCTowerEnergy[:], r.ZNATowerEnergy[:], r.ZPCTowerEnergy[:], r.ZPATowerEnergy[:],
		r.ZNCTowerEnergyLR[:], r.ZNATowerEnergyLR[:], r.ZPCTowerEnergyLR[:], r.ZPATowerEnergyLR[:],
		r.TDCCorrected[:], r.Fired}
}

type VzeroRow struct {
	CollisionID int32
	Adc         [64]float32
	Time        [64]float32
	Width       [64]float32
}

func (r VzeroRow) Values() []any {
	return []any{r.CollisionID, r.Adc[:], r.Time[:], r.Width[:]}
}

type V0Row struct {
	PosTrackID int32
	NegTrackID int32
}

func (r V0Row) Values() []any {
	return []any{r.PosTrackID, r.NegTrackID}
}

type CascadeRow struct {
	V0ID       int32
	BachelorID int32
}

func (r CascadeRow) Values() []any {
	return []any{r.V0ID, r.BachelorID}
}

type TOFRow struct {
	TrackID     int32
	Channel     int32
	NClusters   int16
	Dx          float32
	Dz          float32
	ToT         float32
	LengthRatio float32
}

func (r TOFRow) Values() []any {
	return []any{r.TrackID, r.Channel, r.NClusters, r.Dx, r.Dz, r.ToT, r.LengthRatio}
}

type KineRow struct {
	CollisionID int32
	PdgCode     int32
	Mother      [2]int32
	Daughter    [2]int32
	Px, Py, Pz  float32
	Vx, Vy, Vz  float32
	Vt          float32
}

func (r KineRow) Values() []any {
	return []any{r.CollisionID, r.PdgCode, r.Mother[:], r.Daughter[:],
		r.Px, r.Py, r.Pz, r.Vx, r.Vy, r.Vz, r.Vt}
}
