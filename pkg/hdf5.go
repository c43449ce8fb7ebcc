package converter

import (
	"errors"
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

const hdf5ChunkSize = 32768

type hdf5Location interface {
	CreateDatasetWith(name string, dtype *hdf5.Datatype, dspace *hdf5.Dataspace, dcpl *hdf5.PropList) (*hdf5.Dataset, error)
}

type hdf5Table struct {
	name    string
	dataset *hdf5.Dataset
	dtype   *hdf5.CompoundType
	columns []Column
	rows    uint
}

// HDF5Backend writes every table as a compound dataset of one file, inside
// an optional partition group.
type HDF5Backend struct {
	Filename         string
	file             *hdf5.File
	group            *hdf5.Group
	location         hdf5Location
	compressionLevel int
	tables           [NumTables]*hdf5Table
}

func NewHDF5Backend(filename string, partition string, compressionLevel int) (*HDF5Backend, error) {
	file, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5")

	b := &HDF5Backend{
		Filename:         filename,
		file:             file,
		location:         file,
		compressionLevel: compressionLevel,
	}
	if partition != "" {
		group, err := file.CreateGroup(partition)
		if err != nil {
			file.Close()
			return nil, &ErrCreateGroup{GroupName: partition, Err: err}
		}
		b.group = group
		b.location = group
	}
	return b, nil
}

func nativeType(t Type) *hdf5.Datatype {
	switch t {
	case Int8:
		return hdf5.T_NATIVE_INT8
	case Uint8:
		return hdf5.T_NATIVE_UINT8
	case Int16:
		return hdf5.T_NATIVE_INT16
	case Uint16:
		return hdf5.T_NATIVE_UINT16
	case Int32:
		return hdf5.T_NATIVE_INT32
	case Uint32:
		return hdf5.T_NATIVE_UINT32
	case Int64:
		return hdf5.T_NATIVE_INT64
	case Uint64:
		return hdf5.T_NATIVE_UINT64
	case Float32:
		return hdf5.T_NATIVE_FLOAT
	case Float64:
		return hdf5.T_NATIVE_DOUBLE
	}
	return nil
}

// compoundType builds a packed compound type with one member per column.
func compoundType(columns []Column) (*hdf5.CompoundType, error) {
	size := 0
	for _, c := range columns {
		size += c.Size()
	}
	dtype, err := hdf5.NewCompoundType(size)
	if err != nil {
		return nil, err
	}
	offset := 0
	for _, c := range columns {
		member := nativeType(c.Type)
		if c.Shape != nil {
			arrayType, err := hdf5.NewArrayType(member, c.Shape)
			if err != nil {
				dtype.Close()
				return nil, fmt.Errorf("error creating array type for %s: %w", c.Name, err)
			}
			err = dtype.Insert(c.Name, offset, &arrayType.Datatype)
			arrayType.Close()
			if err != nil {
				dtype.Close()
				return nil, fmt.Errorf("error inserting %s: %w", c.Name, err)
			}
		} else if err := dtype.Insert(c.Name, offset, member); err != nil {
			dtype.Close()
			return nil, fmt.Errorf("error inserting %s: %w", c.Name, err)
		}
		offset += c.Size()
	}
	return dtype, nil
}

func (b *HDF5Backend) CreateTable(table *Table, columns []Column) error {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return err
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return err
	}
	defer plist.Close()
	if err := plist.SetChunk([]uint{hdf5ChunkSize}); err != nil {
		return err
	}
	if b.compressionLevel > 0 {
		if err := plist.SetDeflate(b.compressionLevel); err != nil {
			return err
		}
	}

	dtype, err := compoundType(columns)
	if err != nil {
		return err
	}
	dataset, err := b.location.CreateDatasetWith(table.Name, &dtype.Datatype, fileSpace, plist)
	if err != nil {
		dtype.Close()
		return err
	}
	b.tables[table.Kind] = &hdf5Table{
		name:    table.Name,
		dataset: dataset,
		dtype:   dtype,
		columns: columns,
	}
	return nil
}

// WriteRows extends the dataset and writes the rows into the new slab.
func (b *HDF5Backend) WriteRows(kind TableKind, rows [][]any) error {
	t := b.tables[kind]
	if t == nil {
		return fmt.Errorf("%w: %v", ErrUnknownTable, kind)
	}
	data, err := encodeRows(t.columns, rows)
	if err != nil {
		return err
	}

	length := uint(len(rows))
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	if err := t.dataset.Resize([]uint{t.rows + length}); err != nil {
		return err
	}
	filespace := t.dataset.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab([]uint{t.rows}, nil, []uint{length}, nil); err != nil {
		return err
	}
	if err := t.dataset.WriteSubset(&data, dataspace, filespace); err != nil {
		return err
	}
	t.rows += length
	return nil
}

func (b *HDF5Backend) Close() error {
	logger.Info(fmt.Sprintf("Closing file %s", b.Filename), "hdf5")
	var errs []error
	for _, t := range b.tables {
		if t == nil {
			continue
		}
		if err := t.dataset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing table %s: %w", t.name, err))
		}
		if err := t.dtype.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing datatype of %s: %w", t.name, err))
		}
	}
	if b.group != nil {
		if err := b.group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group: %w", err))
		}
	}
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
