package converter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOpenFile represents an error when opening an output file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group or directory.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

// ErrWriteTable represents an error when appending rows to a table.
type ErrWriteTable struct {
	TableName string
	Rows      int
	Err       error
}

func (e *ErrWriteTable) Error() string {
	return fmt.Sprintf("error writing %d rows to table %q: %v", e.Rows, e.TableName, e.Err)
}

func (e *ErrWriteTable) Unwrap() error { return e.Err }

// ErrMissingVertex is returned for an event without primary vertex.
type ErrMissingVertex struct {
	EventID uint64
}

func (e *ErrMissingVertex) Error() string {
	return fmt.Sprintf("event %d: primary vertex not defined", e.EventID)
}

// ErrMissingMC is returned in MC mode when the MC truth of an event is
// incomplete.
type ErrMissingMC struct {
	EventID uint64
	What    string
}

func (e *ErrMissingMC) Error() string {
	return fmt.Sprintf("event %d: could not retrieve %s", e.EventID, e.What)
}

// ErrTooManyTimingBins is returned when the timing response has more
// momentum bins than the event-time computation supports.
type ErrTooManyTimingBins struct {
	Bins int
}

func (e *ErrTooManyTimingBins) Error() string {
	return fmt.Sprintf("timing response has %d momentum bins, at most %d are supported", e.Bins, MaxTimingBins)
}

// ErrInvalidTimeResolution is returned for a timing bin whose resolution
// cannot be used as a weight.
type ErrInvalidTimeResolution struct {
	Bin        int
	Resolution float32
}

func (e *ErrInvalidTimeResolution) Error() string {
	return fmt.Sprintf("timing bin %d has non-positive resolution %g", e.Bin, e.Resolution)
}

// ErrUnknownColumns is returned when names in the prune list match no
// active column.
type ErrUnknownColumns struct {
	Names []string
}

func (e *ErrUnknownColumns) Error() string {
	return fmt.Sprintf("did not find columns: %s", strings.Join(e.Names, " "))
}

// ErrIndexOverflow is returned when a daughter index does not fit the
// packed V0 key.
type ErrIndexOverflow struct {
	Index int64
}

func (e *ErrIndexOverflow) Error() string {
	return fmt.Sprintf("daughter index %d outside [0, 2^%d)", e.Index, packedIndexBits)
}

// ErrEventIDOverflow is returned when a header field exceeds its bit width
// in the packed event identifier.
type ErrEventIDOverflow struct {
	Field string
	Value uint32
	Bits  uint
}

func (e *ErrEventIDOverflow) Error() string {
	return fmt.Sprintf("%s %d does not fit in %d bits", e.Field, e.Value, e.Bits)
}

// ErrOffsetOverflow is returned when advancing an identifier offset would
// leave the int32 key space.
type ErrOffsetOverflow struct {
	Counter string
	Current int32
	Added   int
}

func (e *ErrOffsetOverflow) Error() string {
	return fmt.Sprintf("%s offset %d cannot advance by %d", e.Counter, e.Current, e.Added)
}

// ErrDanglingReference is returned when an object refers to a missing
// object of the same event.
type ErrDanglingReference struct {
	From  string
	To    string
	Index int64
}

func (e *ErrDanglingReference) Error() string {
	return fmt.Sprintf("%s refers to missing %s %d", e.From, e.To, e.Index)
}

var (
	ErrSchemaFrozen  = errors.New("schema is frozen once rows were appended")
	ErrSinkClosed    = errors.New("table sink is closed")
	ErrUnknownTable  = errors.New("unknown table")
	ErrColumnMissing = errors.New("column not found")
)
