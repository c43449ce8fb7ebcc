package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	converter "github.com/alice-run3/ao2d_go/pkg"
	"github.com/alice-run3/ao2d_go/pkg/esd"
)

func eventLines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `{"run_number": 7, "header": {"bunch_crossing": %d}, "primary_vertex": {"z": 1}}`+"\n", i)
	}
	return sb.String()
}

func TestLoadConfigurationJSON(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	data := `{"file_in": "events.json", "file_out": "out.h5", "task_mode": "mc", "num_workers": 2, "no_db": true}`
	if err := os.WriteFile(filename, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfiguration(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.TaskMode != converter.TaskModeMC || config.NumWorkers != 2 || !config.NoDB {
		t.Errorf("unexpected configuration: %+v", config)
	}
	if config.OutputFormat != converter.OutputHDF5 || config.EventsPerCluster != 100 {
		t.Errorf("expected defaults for missing fields, got %+v", config)
	}
}

func TestLoadConfigurationYAML(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yml")
	data := "file_in: events.json.zst\noutput_format: memory\nprune_list: fTOFsignal\nskip: 3\n"
	if err := os.WriteFile(filename, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfiguration(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.OutputFormat != converter.OutputMemory || config.Skip != 3 || config.PruneList != "fTOFsignal" {
		t.Errorf("unexpected configuration: %+v", config)
	}
}

func TestLoadConfigurationInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing_in.json":  `{"file_out": "out.h5"}`,
		"missing_out.json": `{"file_in": "in.json"}`,
		"workers.json":     `{"file_in": "in.json", "file_out": "o", "num_workers": 0}`,
		"format.json":      `{"file_in": "in.json", "file_out": "o", "output_format": "csv"}`,
	}
	for name, data := range cases {
		filename := filepath.Join(dir, name)
		if err := os.WriteFile(filename, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfiguration(filename); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadConfiguration(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileReaderSkipAndMax(t *testing.T) {
	reader := NewFileReader(esd.NewReader(strings.NewReader(eventLines(5))), 1, 3, 0)
	var lines []int
	for {
		_, line, err := reader.getNextEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 || lines[0] != 2 || lines[1] != 3 {
		t.Errorf("expected lines 2 and 3, got %v", lines)
	}
}

func TestOrderedSource(t *testing.T) {
	const n = 50
	reader := NewFileReader(esd.NewReader(strings.NewReader(eventLines(n))), 0, 1e9, 0)
	source := StartDecoding(context.Background(), reader, 4)
	defer source.Close()

	for i := 0; i < n; i++ {
		ev, err := source.Next()
		if err != nil {
			t.Fatalf("event %d: unexpected error: %v", i, err)
		}
		if ev.Header.BunchCrossing != uint32(i) {
			t.Fatalf("expected event %d, got bunch crossing %d", i, ev.Header.BunchCrossing)
		}
	}
	if _, err := source.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestOrderedSourceDecodeError(t *testing.T) {
	input := eventLines(2) + "{broken\n" + eventLines(1)
	reader := NewFileReader(esd.NewReader(strings.NewReader(input)), 0, 1e9, 0)
	source := StartDecoding(context.Background(), reader, 2)
	defer source.Close()

	for i := 0; i < 2; i++ {
		if _, err := source.Next(); err != nil {
			t.Fatalf("event %d: unexpected error: %v", i, err)
		}
	}
	_, err := source.Next()
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected decoding error on line 3, got %v", err)
	}
}

func TestOrderedSourceClose(t *testing.T) {
	reader := NewFileReader(esd.NewReader(strings.NewReader(eventLines(100))), 0, 1e9, 0)
	source := StartDecoding(context.Background(), reader, 3)
	if _, err := source.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// closing with undelivered events must not block
	source.Close()
}

func TestRunMemoryOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.json")
	if err := os.WriteFile(input, []byte(eventLines(4)), 0o644); err != nil {
		t.Fatal(err)
	}
	config := converter.DefaultConfiguration()
	config.FileIn = input
	config.OutputFormat = converter.OutputMemory
	config.NoDB = true
	config.Skip = 1

	if err := run(context.Background(), config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunBookkeeping(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.json")
	if err := os.WriteFile(input, []byte(eventLines(3)), 0o644); err != nil {
		t.Fatal(err)
	}
	config := converter.DefaultConfiguration()
	config.FileIn = input
	config.OutputFormat = converter.OutputMemory
	config.DBDriver = "sqlite"
	config.DBName = filepath.Join(dir, "bookkeeping.db")

	if err := run(context.Background(), config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := run(context.Background(), config); err == nil {
		t.Error("expected a second conversion of the same run to be refused")
	}
	config.Overwrite = true
	if err := run(context.Background(), config); err != nil {
		t.Fatalf("unexpected error with overwrite: %v", err)
	}

	db, err := converter.ConnectToDatabase("sqlite", "", "", "", config.DBName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()
	record, err := converter.GetConversionRun(db, 7, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EventsAccepted != 3 || record.Format != "memory" {
		t.Errorf("unexpected record: %+v", record)
	}
}
