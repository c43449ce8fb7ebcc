package esd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const twoEvents = `{"run_number": 244918, "header": {"bunch_crossing": 1, "orbit": 2, "period": 3}, "primary_vertex": {"x": 0.1, "y": 0.2, "z": 1.5}, "tracks": [{"x": 1}, {"x": 2}]}

{"run_number": 244918, "header": {"bunch_crossing": 4}, "v0s": [{"pindex": 1, "nindex": -2, "on_the_fly": true}], "mc": {"generator": {"kind": "cocktail", "headers": [{"kind": "pythia"}]}}}
`

func readAll(t *testing.T, r *Reader) []*Event {
	t.Helper()
	var events []*Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, ev)
	}
}

func checkTwoEvents(t *testing.T, events []*Event) {
	t.Helper()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.RunNumber != 244918 || first.Header.Orbit != 2 || first.Header.Period != 3 {
		t.Errorf("unexpected first event header: %+v", first.Header)
	}
	if first.PrimaryVertex == nil || first.PrimaryVertex.Z != 1.5 {
		t.Errorf("unexpected primary vertex: %+v", first.PrimaryVertex)
	}
	if len(first.Tracks) != 2 || first.Tracks[1].X != 2 {
		t.Errorf("unexpected tracks: %+v", first.Tracks)
	}

	second := events[1]
	if second.PrimaryVertex != nil {
		t.Errorf("expected no primary vertex, got %+v", second.PrimaryVertex)
	}
	if len(second.V0s) != 1 || second.V0s[0].NegativeIndex != -2 || !second.V0s[0].OnTheFly {
		t.Errorf("unexpected V0s: %+v", second.V0s)
	}
	gen := second.MC.Generator
	if gen.Kind != GeneratorCocktail || len(gen.Headers) != 1 || gen.Headers[0].Kind != GeneratorPythia {
		t.Errorf("unexpected generator header: %+v", gen)
	}
}

func TestReaderPlain(t *testing.T) {
	r := NewReader(strings.NewReader(twoEvents))
	checkTwoEvents(t, readAll(t, r))
}

func TestReaderLineNumbers(t *testing.T) {
	r := NewReader(strings.NewReader(twoEvents))
	_, line, err := r.NextLine()
	if err != nil || line != 1 {
		t.Fatalf("expected line 1, got %d (%v)", line, err)
	}
	_, line, err = r.NextLine()
	if err != nil || line != 3 {
		t.Fatalf("expected line 3 after the empty line, got %d (%v)", line, err)
	}
	if _, _, err = r.NextLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReaderInvalidEvent(t *testing.T) {
	r := NewReader(strings.NewReader("{\"run_number\": 1}\n{not json}\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := r.Next()
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected decoding error on line 2, got %v", err)
	}
}

func TestOpenFileCompressed(t *testing.T) {
	dir := t.TempDir()

	gzName := filepath.Join(dir, "events.json.gz")
	gzFile, err := os.Create(gzName)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(gzFile)
	if _, err := gw.Write([]byte(twoEvents)); err != nil {
		t.Fatal(err)
	}
	gw.Close()
	gzFile.Close()

	zstName := filepath.Join(dir, "events.json.zst")
	zstFile, err := os.Create(zstName)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(zstFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(twoEvents)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	zstFile.Close()

	plainName := filepath.Join(dir, "events.json")
	if err := os.WriteFile(plainName, []byte(twoEvents), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{plainName, gzName, zstName} {
		t.Run(filepath.Base(name), func(t *testing.T) {
			r, err := OpenFile(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer r.Close()
			checkTwoEvents(t, readAll(t, r))
		})
	}
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.json"))
	var openErr *ErrOpenFile
	if !errors.As(err, &openErr) {
		t.Fatalf("expected ErrOpenFile, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestFindMuonCluster(t *testing.T) {
	ev := &Event{MuonClusters: []MuonCluster{{ID: 7, X: 1}, {ID: 3, X: 2}}}
	if c := ev.FindMuonCluster(3); c == nil || c.X != 2 {
		t.Errorf("expected cluster 3, got %+v", c)
	}
	if c := ev.FindMuonCluster(4); c != nil {
		t.Errorf("expected nil, got %+v", c)
	}
}

func TestGeneratorKindJSON(t *testing.T) {
	var g GeneratorKind
	if err := g.UnmarshalJSON([]byte(`"tuned-pbpb"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != GeneratorTunedPbPb {
		t.Errorf("expected tuned-pbpb, got %v", g)
	}
	if err := g.UnmarshalJSON([]byte(`"sherpa"`)); err == nil {
		t.Error("expected error for unknown generator")
	}
	if s := GeneratorKind(42).String(); s != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %s", s)
	}
}
