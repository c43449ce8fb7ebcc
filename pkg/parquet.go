package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type parquetTable struct {
	name    string
	file    *os.File
	schema  *arrow.Schema
	writer  *pqarrow.FileWriter
	columns []Column
}

// ParquetBackend writes one Parquet file per table into a directory. Each
// committed flush cycle becomes one record batch.
type ParquetBackend struct {
	Dir    string
	pool   memory.Allocator
	props  *parquet.WriterProperties
	tables [NumTables]*parquetTable
}

func NewParquetBackend(dir string, partition string) (*ParquetBackend, error) {
	if partition != "" {
		dir = filepath.Join(dir, partition)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ErrCreateGroup{GroupName: dir, Err: err}
	}
	logger.Info(fmt.Sprintf("Writing parquet tables to %s", dir), "parquet")
	return &ParquetBackend{
		Dir:  dir,
		pool: memory.NewGoAllocator(),
		props: parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Zstd),
			parquet.WithCreatedBy("ao2d"),
		),
	}, nil
}

func arrowType(t Type) arrow.DataType {
	switch t {
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Uint8:
		return arrow.PrimitiveTypes.Uint8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Uint16:
		return arrow.PrimitiveTypes.Uint16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Uint32:
		return arrow.PrimitiveTypes.Uint32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Uint64:
		return arrow.PrimitiveTypes.Uint64
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	}
	return nil
}

// ArrowSchema maps columns to an Arrow schema. Array columns become
// fixed-size lists of their flattened length.
func ArrowSchema(columns []Column) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		var dt arrow.DataType = arrowType(c.Type)
		if c.Shape != nil {
			dt = arrow.FixedSizeListOf(int32(c.Len()), dt)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt}
	}
	return arrow.NewSchema(fields, nil)
}

func (b *ParquetBackend) CreateTable(table *Table, columns []Column) error {
	filename := filepath.Join(b.Dir, table.Name+".parquet")
	file, err := os.Create(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	schema := ArrowSchema(columns)
	writer, err := pqarrow.NewFileWriter(schema, file, b.props, pqarrow.DefaultWriterProps())
	if err != nil {
		file.Close()
		return err
	}
	b.tables[table.Kind] = &parquetTable{
		name:    table.Name,
		file:    file,
		schema:  schema,
		writer:  writer,
		columns: columns,
	}
	return nil
}

func appendArrow(bld array.Builder, v any) error {
	switch x := v.(type) {
	case int8:
		bld.(*array.Int8Builder).Append(x)
	case uint8:
		bld.(*array.Uint8Builder).Append(x)
	case int16:
		bld.(*array.Int16Builder).Append(x)
	case uint16:
		bld.(*array.Uint16Builder).Append(x)
	case int32:
		bld.(*array.Int32Builder).Append(x)
	case uint32:
		bld.(*array.Uint32Builder).Append(x)
	case int64:
		bld.(*array.Int64Builder).Append(x)
	case uint64:
		bld.(*array.Uint64Builder).Append(x)
	case float32:
		bld.(*array.Float32Builder).Append(x)
	case float64:
		bld.(*array.Float64Builder).Append(x)
	case []int32:
		list := bld.(*array.FixedSizeListBuilder)
		list.Append(true)
		list.ValueBuilder().(*array.Int32Builder).AppendValues(x, nil)
	case []float32:
		list := bld.(*array.FixedSizeListBuilder)
		list.Append(true)
		list.ValueBuilder().(*array.Float32Builder).AppendValues(x, nil)
	case []float64:
		list := bld.(*array.FixedSizeListBuilder)
		list.Append(true)
		list.ValueBuilder().(*array.Float64Builder).AppendValues(x, nil)
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

func (b *ParquetBackend) WriteRows(kind TableKind, rows [][]any) error {
	t := b.tables[kind]
	if t == nil {
		return fmt.Errorf("%w: %v", ErrUnknownTable, kind)
	}
	builder := array.NewRecordBuilder(b.pool, t.schema)
	defer builder.Release()

	for i, row := range rows {
		if len(row) != len(t.columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(t.columns))
		}
		for j, c := range t.columns {
			if err := CheckValue(c, row[j]); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := appendArrow(builder.Field(j), row[j]); err != nil {
				return fmt.Errorf("row %d column %s: %w", i, c.Name, err)
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()
	return t.writer.Write(rec)
}

func (b *ParquetBackend) Close() error {
	var errs []error
	for _, t := range b.tables {
		if t == nil {
			continue
		}
		if err := t.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", t.name, err))
		}
		// the writer may already have closed the file
		if err := t.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("error closing file of %s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}
