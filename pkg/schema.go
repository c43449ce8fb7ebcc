package converter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Type is the storage type of a column element.
type Type int

const (
	Int8 Type = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var typeStrings = []string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "float32", "float64"}
var typeSizes = []int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8}
var typeKinds = []reflect.Type{
	reflect.TypeOf(int8(0)), reflect.TypeOf(uint8(0)),
	reflect.TypeOf(int16(0)), reflect.TypeOf(uint16(0)),
	reflect.TypeOf(int32(0)), reflect.TypeOf(uint32(0)),
	reflect.TypeOf(int64(0)), reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)), reflect.TypeOf(float64(0)),
}

func (t Type) String() string {
	if t < Int8 || t > Float64 {
		return "UNKNOWN"
	}
	return typeStrings[t]
}

// Size returns the element size in bytes.
func (t Type) Size() int {
	return typeSizes[t]
}

// GoType returns the Go type holding one element.
func (t Type) GoType() reflect.Type {
	return typeKinds[t]
}

// Column describes one column of a table. Shape is nil for scalars.
type Column struct {
	Name   string
	Type   Type
	Shape  []int
	MCOnly bool
	Active bool
}

// Len is the number of elements in one cell.
func (c Column) Len() int {
	n := 1
	for _, d := range c.Shape {
		n *= d
	}
	return n
}

// Size is the number of bytes of one cell.
func (c Column) Size() int {
	return c.Len() * c.Type.Size()
}

// GoType returns the Go type of one cell: the element type for scalars and
// a slice of it for array columns.
func (c Column) GoType() reflect.Type {
	if c.Shape == nil {
		return c.Type.GoType()
	}
	return reflect.SliceOf(c.Type.GoType())
}

type TableKind int

const (
	Events TableKind = iota
	Tracks
	Calo
	CaloTrigger
	Muon
	MuonCls
	Zdc
	Vzero
	V0s
	Cascades
	TOF
	Kinematics
	NumTables
)

var tableNames = []string{
	"O2events", "O2tracks", "O2calo", "O2caloTrigger", "O2muon", "O2muoncls",
	"O2zdc", "O2vzero", "O2v0s", "O2cascades", "O2tof", "O2kine",
}

var tableTitles = []string{
	"Event tree", "Barrel tracks", "Calorimeter cells", "Calorimeter triggers",
	"MUON tracks", "MUON clusters", "ZDC", "VZERO", "V0s", "Cascades",
	"TOF hits", "Kinematics",
}

func (k TableKind) String() string {
	if k < Events || k >= NumTables {
		return "UNKNOWN"
	}
	return tableNames[k]
}

// TableKindFromName resolves a table name such as "O2tracks".
func TableKindFromName(name string) (TableKind, error) {
	for i, n := range tableNames {
		if n == name {
			return TableKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

type Table struct {
	Kind    TableKind
	Name    string
	Title   string
	Columns []Column
	Active  bool
}

// ActiveColumns returns the active columns in schema order.
func (t *Table) ActiveColumns() []Column {
	columns := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Active {
			columns = append(columns, c)
		}
	}
	return columns
}

// activeIndices returns the positions of the active columns in the full
// column list.
func (t *Table) activeIndices() []int {
	idx := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if c.Active {
			idx = append(idx, i)
		}
	}
	return idx
}

// Schema holds the twelve tables of the output.
type Schema struct {
	tables [NumTables]*Table
	frozen bool
}

func scalar(name string, t Type) Column {
	return Column{Name: name, Type: t, Active: true}
}

func arrayColumn(name string, t Type, shape ...int) Column {
	return Column{Name: name, Type: t, Shape: shape, Active: true}
}

func mcOnly(c Column) Column {
	c.MCOnly = true
	return c
}

func scalars(t Type, names ...string) []Column {
	columns := make([]Column, len(names))
	for i, n := range names {
		columns[i] = scalar(n, t)
	}
	return columns
}

func concat(groups ...[]Column) []Column {
	var columns []Column
	for _, g := range groups {
		columns = append(columns, g...)
	}
	return columns
}

var trackCovarianceNames = []string{
	"fCYY", "fCZY", "fCZZ", "fCSnpY", "fCSnpZ", "fCSnpSnp", "fCTglY", "fCTglZ",
	"fCTglSnp", "fCTglTgl", "fC1PtY", "fC1PtZ", "fC1PtSnp", "fC1PtTgl", "fC1Pt21Pt2",
}

func schemaColumns(kind TableKind) []Column {
	collision := scalar("fCollisionID", Int32)
	switch kind {
	case Events:
		return concat(
			[]Column{scalar("fEventId", Uint64)},
			scalars(Float32, "fX", "fY", "fZ", "fEventTime", "fEventTimeRes"),
			[]Column{
				scalar("fEventTimeMask", Uint8),
				mcOnly(scalar("fGeneratorID", Int16)),
				mcOnly(scalar("fMCVtxX", Float32)),
				mcOnly(scalar("fMCVtxY", Float32)),
				mcOnly(scalar("fMCVtxZ", Float32)),
			},
		)
	case Tracks:
		return concat(
			[]Column{collision},
			scalars(Float32, "fX", "fAlpha", "fY", "fZ", "fSnp", "fTgl", "fSigned1Pt"),
			scalars(Float32, trackCovarianceNames...),
			[]Column{
				scalar("fTPCinnerP", Float32),
				scalar("fFlags", Uint64),
				scalar("fITSClusterMap", Uint8),
				scalar("fTPCncls", Uint16),
				scalar("fTRDntracklets", Uint8),
			},
			scalars(Float32, "fITSchi2Ncl", "fTPCchi2Ncl", "fTRDchi2", "fTOFchi2",
				"fTPCsignal", "fTRDsignal", "fTOFsignal", "fLength"),
			[]Column{
				mcOnly(scalar("fLabel", Int32)),
				mcOnly(arrayColumn("fTOFLabel", Int32, 3)),
			},
		)
	case Calo:
		return []Column{
			collision,
			scalar("fCellNumber", Int16),
			scalar("fAmplitude", Float32),
			scalar("fTime", Float32),
			scalar("fCellType", Int8),
			scalar("fType", Int8),
		}
	case CaloTrigger:
		return []Column{
			collision,
			scalar("fFastOrAbsID", Int16),
			scalar("fL0Amplitude", Float32),
			scalar("fL1TimeSum", Float32),
			scalar("fNL0Times", Int8),
			scalar("fTriggerBits", Int32),
			scalar("fType", Int8),
		}
	case Muon:
		return concat(
			[]Column{collision},
			scalars(Float32, "fInverseBendingMomentum", "fThetaX", "fThetaY", "fZ",
				"fBendingCoor", "fNonBendingCoor"),
			[]Column{arrayColumn("fCovariances", Float32, 15)},
			scalars(Float32, "fChi2", "fChi2MatchTrigger"),
		)
	case MuonCls:
		return concat(
			[]Column{scalar("fMuTrackID", Int32)},
			scalars(Float32, "fX", "fY", "fZ", "fErrX", "fErrY", "fCharge", "fChi2"),
		)
	case Zdc:
		return concat(
			[]Column{collision},
			scalars(Float32, "fZEM1Energy", "fZEM2Energy"),
			[]Column{
				arrayColumn("fZNCTowerEnergy", Float32, 5),
				arrayColumn("fZNATowerEnergy", Float32, 5),
				arrayColumn("fZPCTowerEnergy", Float32, 5),
				arrayColumn("fZPATowerEnergy", Float32, 5),
				arrayColumn("fZNCTowerEnergyLR", Float32, 5),
				arrayColumn("fZNATowerEnergyLR", Float32, 5),
				arrayColumn("fZPCTowerEnergyLR", Float32, 5),
				arrayColumn("fZPATowerEnergyLR", Float32, 5),
				arrayColumn("fZDCTDCCorrected", Float32, 32, 4),
				scalar("fFired", Uint8),
			},
		)
	case Vzero:
		return []Column{
			collision,
			arrayColumn("fAdc", Float32, 64),
			arrayColumn("fTime", Float32, 64),
			arrayColumn("fWidth", Float32, 64),
		}
	case V0s:
		return scalars(Int32, "fPosTrackID", "fNegTrackID")
	case Cascades:
		return scalars(Int32, "fV0ID", "fBachelorID")
	case TOF:
		return []Column{
			scalar("fTrackID", Int32),
			scalar("fTOFChannel", Int32),
			scalar("fTOFncls", Int16),
			scalar("fDx", Float32),
			scalar("fDz", Float32),
			scalar("fToT", Float32),
			scalar("fLengthRatio", Float32),
		}
	case Kinematics:
		return concat(
			[]Column{collision, scalar("fPdgCode", Int32)},
			[]Column{arrayColumn("fMother", Int32, 2), arrayColumn("fDaughter", Int32, 2)},
			scalars(Float32, "fPx", "fPy", "fPz", "fVx", "fVy", "fVz", "fVt"),
		)
	}
	return nil
}

// NewSchema builds the schema for the given mode. In standard mode the
// kinematics table and the MC-only columns are inactive.
func NewSchema(mode TaskMode) *Schema {
	s := &Schema{}
	for k := Events; k < NumTables; k++ {
		t := &Table{
			Kind:    k,
			Name:    tableNames[k],
			Title:   tableTitles[k],
			Columns: schemaColumns(k),
			Active:  true,
		}
		if mode != TaskModeMC {
			if k == Kinematics {
				t.Active = false
			}
			for i := range t.Columns {
				if t.Columns[i].MCOnly {
					t.Columns[i].Active = false
				}
			}
		}
		s.tables[k] = t
	}
	return s
}

func (s *Schema) Table(kind TableKind) *Table {
	return s.tables[kind]
}

// Tables returns all tables in output order.
func (s *Schema) Tables() []*Table {
	return s.tables[:]
}

// ActiveTables returns the active tables in output order.
func (s *Schema) ActiveTables() []*Table {
	var tables []*Table
	for _, t := range s.tables {
		if t.Active {
			tables = append(tables, t)
		}
	}
	return tables
}

func (s *Schema) SetTableActive(kind TableKind, active bool) error {
	if s.frozen {
		return ErrSchemaFrozen
	}
	s.tables[kind].Active = active
	return nil
}

// SetColumnActive enables or disables a column of one table.
func (s *Schema) SetColumnActive(kind TableKind, name string, active bool) error {
	if s.frozen {
		return ErrSchemaFrozen
	}
	t := s.tables[kind]
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			t.Columns[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrColumnMissing, t.Name, name)
}

// DisableTables disables the named tables.
func (s *Schema) DisableTables(names []string) error {
	for _, name := range names {
		kind, err := TableKindFromName(name)
		if err != nil {
			return err
		}
		if err := s.SetTableActive(kind, false); err != nil {
			return err
		}
	}
	return nil
}

// Prune disables every active column, in any active table, whose name is in
// the whitespace separated list. All names are resolved before anything is
// disabled; names matching no active column are reported together.
func (s *Schema) Prune(list string) error {
	if s.frozen {
		return ErrSchemaFrozen
	}
	names := strings.Fields(list)
	if len(names) == 0 {
		return nil
	}

	type ref struct {
		table  TableKind
		column int
	}
	var matches []ref
	var missing []string
	for _, name := range names {
		found := false
		for _, t := range s.tables {
			if !t.Active {
				continue
			}
			for i, c := range t.Columns {
				if c.Active && c.Name == name {
					matches = append(matches, ref{t.Kind, i})
					found = true
				}
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ErrUnknownColumns{Names: missing}
	}

	for _, m := range matches {
		s.tables[m.table].Columns[m.column].Active = false
		logger.Info(fmt.Sprintf("Pruning column %s.%s", s.tables[m.table].Name, s.tables[m.table].Columns[m.column].Name), "schema")
	}
	return nil
}

// Frozen reports whether the schema accepts no further changes.
func (s *Schema) Frozen() bool {
	return s.frozen
}

func (s *Schema) freeze() {
	s.frozen = true
}
