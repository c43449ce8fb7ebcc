package converter

import (
	"errors"
	"reflect"
	"testing"
)

func columnActive(t *testing.T, s *Schema, kind TableKind, name string) bool {
	t.Helper()
	for _, c := range s.Table(kind).Columns {
		if c.Name == name {
			return c.Active
		}
	}
	t.Fatalf("column %s not found in %s", name, kind)
	return false
}

func TestNewSchemaModes(t *testing.T) {
	std := NewSchema(TaskModeStandard)
	if std.Table(Kinematics).Active {
		t.Error("expected kinematics table inactive in standard mode")
	}
	if columnActive(t, std, Tracks, "fLabel") || columnActive(t, std, Events, "fGeneratorID") {
		t.Error("expected MC-only columns inactive in standard mode")
	}
	if n := len(std.ActiveTables()); n != int(NumTables)-1 {
		t.Errorf("expected %d active tables, got %d", NumTables-1, n)
	}

	mc := NewSchema(TaskModeMC)
	if !mc.Table(Kinematics).Active {
		t.Error("expected kinematics table active in MC mode")
	}
	if !columnActive(t, mc, Tracks, "fTOFLabel") {
		t.Error("expected MC-only columns active in MC mode")
	}
}

func TestSchemaTableNames(t *testing.T) {
	for k := Events; k < NumTables; k++ {
		got, err := TableKindFromName(k.String())
		if err != nil || got != k {
			t.Errorf("TableKindFromName(%s) = %v, %v", k, got, err)
		}
	}
	if _, err := TableKindFromName("O2bogus"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func TestColumnSizes(t *testing.T) {
	s := NewSchema(TaskModeMC)
	var zdcTDC Column
	for _, c := range s.Table(Zdc).Columns {
		if c.Name == "fZDCTDCCorrected" {
			zdcTDC = c
		}
	}
	if zdcTDC.Len() != 128 || zdcTDC.Size() != 512 {
		t.Errorf("expected 128 elements of 512 bytes, got %d and %d", zdcTDC.Len(), zdcTDC.Size())
	}
	if zdcTDC.GoType() != reflect.TypeOf([]float32{}) {
		t.Errorf("expected []float32, got %v", zdcTDC.GoType())
	}
	if typ := s.Table(Events).Columns[0].GoType(); typ != reflect.TypeOf(uint64(0)) {
		t.Errorf("expected uint64 event id, got %v", typ)
	}
}

func TestPruneAcrossTables(t *testing.T) {
	s := NewSchema(TaskModeStandard)
	if err := s.Prune("  fTPCsignal\tfX "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if columnActive(t, s, Tracks, "fTPCsignal") {
		t.Error("expected fTPCsignal pruned")
	}
	for _, kind := range []TableKind{Events, Tracks, MuonCls} {
		if columnActive(t, s, kind, "fX") {
			t.Errorf("expected fX pruned from %s", kind)
		}
	}
	if !columnActive(t, s, Tracks, "fY") {
		t.Error("expected fY to stay active")
	}
	n := len(s.Table(Tracks).ActiveColumns())
	if n != len(s.Table(Tracks).activeIndices()) {
		t.Errorf("active columns and indices disagree")
	}
}

func TestPruneUnknownColumns(t *testing.T) {
	s := NewSchema(TaskModeStandard)
	err := s.Prune("fZ fNope fAlsoNope")
	var unknown *ErrUnknownColumns
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownColumns, got %v", err)
	}
	if !reflect.DeepEqual(unknown.Names, []string{"fAlsoNope", "fNope"}) {
		t.Errorf("unexpected missing names: %v", unknown.Names)
	}
	if !columnActive(t, s, Events, "fZ") {
		t.Error("expected no column pruned when some names are unknown")
	}
}

func TestPruneSkipsInactive(t *testing.T) {
	s := NewSchema(TaskModeStandard)
	// only the kinematics table has fPdgCode, and it is inactive
	if err := s.Prune("fPdgCode"); err == nil {
		t.Error("expected inactive columns not to match")
	}
	if err := s.Prune("fLabel"); err == nil {
		t.Error("expected MC-only columns not to match in standard mode")
	}
	if err := s.Prune(""); err != nil {
		t.Errorf("expected empty list to be accepted, got %v", err)
	}
}

func TestSchemaFrozen(t *testing.T) {
	s := NewSchema(TaskModeStandard)
	s.freeze()
	if err := s.Prune("fX"); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("expected ErrSchemaFrozen, got %v", err)
	}
	if err := s.SetTableActive(Tracks, false); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("expected ErrSchemaFrozen, got %v", err)
	}
	if err := s.SetColumnActive(Tracks, "fX", false); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("expected ErrSchemaFrozen, got %v", err)
	}
}

func TestDisableTables(t *testing.T) {
	s := NewSchema(TaskModeStandard)
	if err := s.DisableTables([]string{"O2tof", "O2zdc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Table(TOF).Active || s.Table(Zdc).Active {
		t.Error("expected O2tof and O2zdc disabled")
	}
	if err := s.DisableTables([]string{"O2nothing"}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
	if err := s.SetColumnActive(Tracks, "fMissing", false); !errors.Is(err, ErrColumnMissing) {
		t.Errorf("expected ErrColumnMissing, got %v", err)
	}
}

func TestRecordValuesMatchSchema(t *testing.T) {
	s := NewSchema(TaskModeMC)
	records := map[TableKind]Record{
		Events:      EventRow{},
		Tracks:      TrackRow{},
		Calo:        CaloRow{},
		CaloTrigger: CaloTriggerRow{},
		Muon:        MuonRow{},
		MuonCls:     MuonClusterRow{},
		Zdc:         ZdcRow{},
		Vzero:       VzeroRow{},
		V0s:         V0Row{},
		Cascades:    CascadeRow{},
		TOF:         TOFRow{},
		Kinematics:  KineRow{},
	}
	for kind, rec := range records {
		columns := s.Table(kind).Columns
		values := rec.Values()
		if len(values) != len(columns) {
			t.Errorf("%s: %d values for %d columns", kind, len(values), len(columns))
			continue
		}
		for i, c := range columns {
			if err := CheckValue(c, values[i]); err != nil {
				t.Errorf("%s: %v", kind, err)
			}
		}
	}
}

func TestEncodeRows(t *testing.T) {
	columns := []Column{scalar("a", Int16), arrayColumn("b", Int32, 2), scalar("c", Float64)}
	rows := [][]any{
		{int16(1), []int32{2, 3}, float64(4)},
		{int16(5), []int32{6, 7}, float64(8)},
	}
	buf, err := encodeRows(columns, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 2*(2+8+8) {
		t.Errorf("expected packed rows of 18 bytes, got %d bytes", len(buf))
	}

	rows[1][1] = []int32{6}
	if _, err := encodeRows(columns, rows); err == nil {
		t.Error("expected error for short array")
	}
	rows[1][1] = []int32{6, 7}
	rows[0][0] = int32(1)
	if _, err := encodeRows(columns, rows); err == nil {
		t.Error("expected error for wrong scalar type")
	}
}
