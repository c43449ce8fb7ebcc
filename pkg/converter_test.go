package converter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

type sliceSource struct {
	events []*esd.Event
	err    error
}

func (s *sliceSource) Next() (*esd.Event, error) {
	if len(s.events) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func testConfiguration() Configuration {
	config := DefaultConfiguration()
	config.OutputFormat = OutputMemory
	config.EventsPerCluster = 1
	config.FileIn = "events.json"
	return config
}

func TestConverterOffsets(t *testing.T) {
	backend := NewMemoryBackend()
	conv, err := NewConverter(testConfiguration(), backend, Services{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := newEvent(3)
	first.V0s = []esd.V0{{PositiveIndex: 0, NegativeIndex: 1}}
	first.TOFClusters = []esd.TOFCluster{{Channel: 1}}
	first.Tracks[2].TOFClusters = []int32{0}
	second := newEvent(2)
	second.V0s = []esd.V0{{PositiveIndex: 1, NegativeIndex: 0}}
	second.Cascades = []esd.Cascade{{PositiveIndex: 1, NegativeIndex: 0, BachelorIndex: 1}}
	second.TOFClusters = []esd.TOFCluster{{Channel: 2}}
	second.Tracks[0].TOFClusters = []int32{0}

	summary, err := conv.Run(context.Background(), &sliceSource{events: []*esd.Event{first, second}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracks, _ := backend.Tables[Tracks].Column("fCollisionID")
	expectedCollisions := []int32{0, 0, 0, 1, 1}
	if len(tracks) != len(expectedCollisions) {
		t.Fatalf("expected %d tracks, got %d", len(expectedCollisions), len(tracks))
	}
	for i, c := range expectedCollisions {
		if tracks[i] != c {
			t.Errorf("track %d: expected collision %d, got %v", i, c, tracks[i])
		}
	}

	pos, _ := backend.Tables[V0s].Column("fPosTrackID")
	if pos[0] != int32(0) || pos[1] != int32(4) {
		t.Errorf("expected positive daughters 0 and 4, got %v", pos)
	}
	tof, _ := backend.Tables[TOF].Column("fTrackID")
	if tof[0] != int32(2) || tof[1] != int32(3) {
		t.Errorf("expected TOF tracks 2 and 3, got %v", tof)
	}
	cascades := backend.Tables[Cascades].Rows
	if len(cascades) != 1 || cascades[0][0] != int32(1) || cascades[0][1] != int32(4) {
		t.Errorf("expected cascade (1, 4), got %v", cascades)
	}

	expectedOffsets := Offsets{Collision: 2, Track: 5, V0: 2}
	if off := conv.Offsets(); off != expectedOffsets {
		t.Errorf("expected offsets %+v, got %+v", expectedOffsets, off)
	}
	if summary.EventsRead != 2 || summary.EventsAccepted != 2 || summary.Rows[Tracks] != 5 || summary.RunNumber != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Finished.IsZero() {
		t.Error("expected finished time to be set")
	}
}

func TestConverterEventCuts(t *testing.T) {
	config := testConfiguration()
	config.UseEventCuts = true
	config.MinTracks = 2
	backend := NewMemoryBackend()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conv, err := NewConverter(config, backend, Services{}, metrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	farVertex := newEvent(5)
	farVertex.PrimaryVertex.Z = 12
	events := []*esd.Event{newEvent(1), newEvent(3), farVertex, newEvent(2)}
	events[3].V0s = []esd.V0{{PositiveIndex: 0, NegativeIndex: 1, OnTheFly: true}}

	summary, err := conv.Run(context.Background(), &sliceSource{events: events})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.EventsAccepted != 2 || summary.EventsRejected != 2 {
		t.Errorf("expected 2 accepted and 2 rejected, got %+v", summary)
	}
	// rejected events consume no identifiers
	if off := conv.Offsets(); off.Collision != 2 || off.Track != 5 {
		t.Errorf("unexpected offsets: %+v", off)
	}

	if v := testutil.ToFloat64(metrics.EventsRead); v != 4 {
		t.Errorf("expected 4 events read, got %g", v)
	}
	if v := testutil.ToFloat64(metrics.EventsRejected); v != 2 {
		t.Errorf("expected 2 events rejected, got %g", v)
	}
	if v := testutil.ToFloat64(metrics.RowsWritten.WithLabelValues("O2tracks")); v != 5 {
		t.Errorf("expected 5 track rows, got %g", v)
	}
	if v := testutil.ToFloat64(metrics.DroppedCandidates.WithLabelValues(reasonOnTheFlyV0)); v != 1 {
		t.Errorf("expected 1 dropped on-the-fly V0, got %g", v)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Error("expected registered metrics")
	}
}

func TestConverterRejectsEventWithoutVertex(t *testing.T) {
	config := testConfiguration()
	config.UseEventCuts = true
	backend := NewMemoryBackend()
	conv, err := NewConverter(config, backend, Services{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noVertex := newEvent(3)
	noVertex.PrimaryVertex = nil
	summary, err := conv.Run(context.Background(), &sliceSource{events: []*esd.Event{noVertex, newEvent(2)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.EventsRejected != 1 || summary.EventsAccepted != 1 {
		t.Errorf("expected 1 accepted and 1 rejected, got %+v", summary)
	}
	if off := conv.Offsets(); off.Collision != 1 || off.Track != 2 {
		t.Errorf("expected only the accepted event to advance offsets, got %+v", off)
	}
}

func TestConverterDisabledAndPruned(t *testing.T) {
	config := testConfiguration()
	config.DisabledTables = []string{"O2calo"}
	config.PruneList = "fTOFsignal fTRDsignal"
	backend := NewMemoryBackend()
	conv, err := NewConverter(config, backend, Services{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := newEvent(1)
	ev.EMCALCells.Cells = []esd.CaloCell{{Number: 1}}
	if err := conv.ProcessEvent(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := backend.Tables[Calo]; ok {
		t.Error("expected no calo table")
	}
	if conv.Summary().Rows[Calo] != 0 {
		t.Errorf("expected no calo rows counted, got %d", conv.Summary().Rows[Calo])
	}
	tracks := backend.Tables[Tracks]
	if len(tracks.Columns) != len(NewSchema(TaskModeStandard).Table(Tracks).ActiveColumns())-2 {
		t.Errorf("expected two pruned track columns, got %d columns", len(tracks.Columns))
	}
	if _, err := tracks.Column("fTOFsignal"); err == nil {
		t.Error("expected fTOFsignal to be pruned")
	}
}

func TestConverterConfigurationErrors(t *testing.T) {
	config := testConfiguration()
	config.PruneList = "fUnknown"
	var unknown *ErrUnknownColumns
	if _, err := NewConverter(config, NewMemoryBackend(), Services{}, nil); !errors.As(err, &unknown) {
		t.Errorf("expected ErrUnknownColumns, got %v", err)
	}

	config = testConfiguration()
	config.DisabledTables = []string{"O2unknown"}
	if _, err := NewConverter(config, NewMemoryBackend(), Services{}, nil); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func TestConverterStopsOnError(t *testing.T) {
	conv, err := NewConverter(testConfiguration(), NewMemoryBackend(), Services{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := newEvent(1)
	bad.PrimaryVertex = nil
	_, err = conv.Run(context.Background(), &sliceSource{events: []*esd.Event{newEvent(1), bad, newEvent(1)}})
	var missing *ErrMissingVertex
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingVertex, got %v", err)
	}
	if off := conv.Offsets(); off.Collision != 1 {
		t.Errorf("expected the failed event not to advance offsets, got %+v", off)
	}

	readErr := errors.New("truncated input")
	conv, _ = NewConverter(testConfiguration(), NewMemoryBackend(), Services{}, nil)
	if _, err := conv.Run(context.Background(), &sliceSource{err: readErr}); !errors.Is(err, readErr) {
		t.Errorf("expected read error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conv, _ = NewConverter(testConfiguration(), NewMemoryBackend(), Services{}, nil)
	if _, err := conv.Run(ctx, &sliceSource{events: []*esd.Event{newEvent(1)}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
