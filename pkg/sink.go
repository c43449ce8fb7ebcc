package converter

import (
	"errors"
	"fmt"
)

// Backend persists table rows. CreateTable is called once per active table
// before any WriteRows; rows hold the values of the given columns only.
type Backend interface {
	CreateTable(table *Table, columns []Column) error
	WriteRows(kind TableKind, rows [][]any) error
	Close() error
}

type tableBuffer struct {
	table     *Table
	columns   []Column
	indices   []int
	pending   [][]any
	events    int
	committed int
}

// TableSink buffers the rows of each table and hands them to the backend
// once per flush cycle.
type TableSink struct {
	schema           *Schema
	backend          Backend
	eventsPerCluster int
	buffers          [NumTables]*tableBuffer
	open             bool
	closed           bool
}

// NewTableSink creates a sink committing rows every eventsPerCluster events,
// or every event when eventsPerCluster is 1 or less.
func NewTableSink(schema *Schema, backend Backend, eventsPerCluster int) *TableSink {
	if eventsPerCluster < 1 {
		eventsPerCluster = 1
	}
	return &TableSink{
		schema:           schema,
		backend:          backend,
		eventsPerCluster: eventsPerCluster,
	}
}

// PruneColumns disables the whitespace separated columns. It must be called
// before the first row is appended.
func (s *TableSink) PruneColumns(list string) error {
	if s.open {
		return ErrSchemaFrozen
	}
	return s.schema.Prune(list)
}

// start freezes the schema and creates the active tables.
func (s *TableSink) start() error {
	if s.closed {
		return ErrSinkClosed
	}
	if s.open {
		return nil
	}
	s.schema.freeze()
	s.open = true
	for _, t := range s.schema.Tables() {
		if !t.Active {
			continue
		}
		buf := &tableBuffer{
			table:   t,
			columns: t.ActiveColumns(),
			indices: t.activeIndices(),
		}
		if err := s.backend.CreateTable(t, buf.columns); err != nil {
			return &ErrCreateTable{TableName: t.Name, Err: err}
		}
		s.buffers[t.Kind] = buf
	}
	return nil
}

// Append adds one row to a table. Rows of inactive tables are dropped.
func (s *TableSink) Append(kind TableKind, rec Record) error {
	if err := s.start(); err != nil {
		return err
	}
	buf := s.buffers[kind]
	if buf == nil {
		return nil
	}
	values := rec.Values()
	if len(values) != len(buf.table.Columns) {
		return fmt.Errorf("%s row has %d values, schema has %d columns", buf.table.Name, len(values), len(buf.table.Columns))
	}
	row := make([]any, len(buf.indices))
	for i, idx := range buf.indices {
		row[i] = values[idx]
	}
	buf.pending = append(buf.pending, row)
	return nil
}

// Flush closes the rows of the current event for one table and commits
// them when the flush cycle is complete.
func (s *TableSink) Flush(kind TableKind) error {
	if err := s.start(); err != nil {
		return err
	}
	buf := s.buffers[kind]
	if buf == nil {
		return nil
	}
	buf.events++
	if buf.events < s.eventsPerCluster {
		return nil
	}
	return s.commit(buf)
}

func (s *TableSink) commit(buf *tableBuffer) error {
	buf.events = 0
	if len(buf.pending) == 0 {
		return nil
	}
	n := len(buf.pending)
	if err := s.backend.WriteRows(buf.table.Kind, buf.pending); err != nil {
		return &ErrWriteTable{TableName: buf.table.Name, Rows: n, Err: err}
	}
	buf.committed += n
	buf.pending = nil
	return nil
}

// RowCount returns the number of rows of a table handed to the backend.
func (s *TableSink) RowCount(kind TableKind) int {
	if buf := s.buffers[kind]; buf != nil {
		return buf.committed
	}
	return 0
}

// Close commits pending rows and closes the backend.
func (s *TableSink) Close() error {
	if s.closed {
		return nil
	}
	var errs []error
	if err := s.start(); err != nil {
		errs = append(errs, err)
	}
	for _, buf := range s.buffers {
		if buf == nil {
			continue
		}
		if err := s.commit(buf); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing backend: %w", err))
	}
	s.closed = true
	return errors.Join(errs...)
}
