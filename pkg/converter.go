package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

// EventSource yields events in order and returns io.EOF after the last one.
type EventSource interface {
	Next() (*esd.Event, error)
}

// RunSummary describes one conversion.
type RunSummary struct {
	RunNumber      int32
	FileIn         string
	FileOut        string
	Format         OutputFormat
	Mode           TaskMode
	EventsRead     int
	EventsAccepted int
	EventsRejected int
	Rows           [NumTables]int
	Diagnostics    Diagnostics
	Started        time.Time
	Finished       time.Time
}

// Converter writes the tables of a run, one event at a time.
type Converter struct {
	config    Configuration
	schema    *Schema
	sink      *TableSink
	flattener *Flattener
	ids       *IdentifierAllocator
	metrics   *Metrics
	summary   RunSummary
}

// NewConverter prepares the schema for the configured mode, disables the
// configured tables and columns and creates the sink on top of backend.
// metrics may be nil.
func NewConverter(config Configuration, backend Backend, services Services, metrics *Metrics) (*Converter, error) {
	schema := NewSchema(config.TaskMode)
	if err := schema.DisableTables(config.DisabledTables); err != nil {
		return nil, fmt.Errorf("error disabling tables: %w", err)
	}
	sink := NewTableSink(schema, backend, config.EventsPerCluster)
	if err := sink.PruneColumns(config.PruneList); err != nil {
		return nil, fmt.Errorf("error pruning columns: %w", err)
	}

	if services.Filter == nil && config.UseEventCuts {
		services.Filter = EventCuts{MaxVertexZ: config.MaxVertexZ, MinTracks: config.MinTracks}
	}
	if metrics == nil {
		var err error
		if metrics, err = NewMetrics(nil); err != nil {
			return nil, err
		}
	}

	return &Converter{
		config:    config,
		schema:    schema,
		sink:      sink,
		flattener: NewFlattener(config.TaskMode, config.MCIndexScope, services),
		ids:       NewIdentifierAllocator(),
		metrics:   metrics,
		summary: RunSummary{
			FileIn:  config.FileIn,
			FileOut: config.FileOut,
			Format:  config.OutputFormat,
			Mode:    config.TaskMode,
			Started: time.Now(),
		},
	}, nil
}

func (c *Converter) Schema() *Schema {
	return c.schema
}

func (c *Converter) Offsets() Offsets {
	return c.ids.Offsets()
}

// ProcessEvent writes the rows of one event and advances the offsets.
// Rejected events write nothing.
func (c *Converter) ProcessEvent(ev *esd.Event) error {
	if c.summary.EventsRead == 0 {
		c.summary.RunNumber = ev.RunNumber
	}
	c.summary.EventsRead++

	rows, err := c.flattener.Flatten(ev, c.ids.Offsets())
	if err != nil {
		return err
	}

	var appended [NumTables]int
	if !rows.Accepted {
		c.summary.EventsRejected++
		c.metrics.observe(rows, appended)
		if c.config.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Event %d rejected", c.summary.EventsRead-1), "converter")
		}
		return nil
	}

	for k := Events; k < NumTables; k++ {
		for _, rec := range rows.Records(k) {
			if err := c.sink.Append(k, rec); err != nil {
				return err
			}
		}
		if c.schema.Table(k).Active {
			appended[k] = len(rows.Records(k))
		}
	}
	for k := Events; k < NumTables; k++ {
		if err := c.sink.Flush(k); err != nil {
			return err
		}
	}
	if err := c.ids.Advance(rows.Counts); err != nil {
		return err
	}

	c.summary.EventsAccepted++
	for k := range appended {
		c.summary.Rows[k] += appended[k]
	}
	c.summary.Diagnostics.add(rows.Diagnostics)
	c.metrics.observe(rows, appended)

	if c.config.Verbosity > 2 {
		off := c.ids.Offsets()
		logger.Info(fmt.Sprintf("Event %d: %d tracks, %d muon tracks, %d V0s; offsets track=%d muon=%d v0=%d",
			c.summary.EventsRead-1, rows.Counts.Tracks, rows.Counts.MuonTracks, rows.Counts.V0s,
			off.Track, off.MuonTrack, off.V0), "converter")
	}
	return nil
}

// Run converts every event of src. It stops at the first error or when ctx
// is done.
func (c *Converter) Run(ctx context.Context, src EventSource) (RunSummary, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.Summary(), err
		}
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.Summary(), fmt.Errorf("error reading event %d: %w", c.summary.EventsRead, err)
		}
		if err := c.ProcessEvent(ev); err != nil {
			return c.Summary(), fmt.Errorf("error processing event %d: %w", c.summary.EventsRead-1, err)
		}
		if c.config.Verbosity > 0 && c.summary.EventsRead%1000 == 0 {
			logger.Info(fmt.Sprintf("Processed %d events", c.summary.EventsRead), "converter")
		}
	}
	c.summary.Finished = time.Now()
	return c.Summary(), nil
}

func (c *Converter) Summary() RunSummary {
	return c.summary
}

// Close commits the remaining rows and closes the output.
func (c *Converter) Close() error {
	return c.sink.Close()
}

// LogSummary writes the run summary through the package logger.
func LogSummary(s RunSummary) {
	logger.Info(fmt.Sprintf("Run %d: %d events read, %d accepted, %d rejected",
		s.RunNumber, s.EventsRead, s.EventsAccepted, s.EventsRejected), "converter")
	for k := Events; k < NumTables; k++ {
		if s.Rows[k] > 0 {
			logger.Info(fmt.Sprintf("%s: %d rows", k, s.Rows[k]), "converter")
		}
	}
	d := s.Diagnostics
	logger.Info(fmt.Sprintf("Dropped candidates: %d on-the-fly V0s, %d on-the-fly cascades, %d unmatched cascades",
		d.OnTheFlyV0s, d.OnTheFlyCascades, d.UnmatchedCascades), "converter")
}
