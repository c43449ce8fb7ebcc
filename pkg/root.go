package converter

import (
	"errors"
	"fmt"
	"reflect"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

type rootTree struct {
	name    string
	writer  rtree.Writer
	columns []Column
	values  []reflect.Value
}

// ROOTBackend writes one TTree per table, inside an optional partition
// directory.
type ROOTBackend struct {
	Filename         string
	file             *riofs.File
	dir              riofs.Directory
	compressionLevel int
	trees            [NumTables]*rootTree
}

func NewROOTBackend(filename string, partition string, compressionLevel int) (*ROOTBackend, error) {
	file, err := groot.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "root")

	var dir riofs.Directory = file
	if partition != "" {
		dir, err = riofs.Dir(file).Mkdir(partition)
		if err != nil {
			file.Close()
			return nil, &ErrCreateGroup{GroupName: partition, Err: err}
		}
	}
	return &ROOTBackend{
		Filename:         filename,
		file:             file,
		dir:              dir,
		compressionLevel: compressionLevel,
	}, nil
}

// branchType is the type of the branch buffer of a column. Array columns
// are stored flat.
func branchType(c Column) reflect.Type {
	if c.Shape == nil {
		return c.Type.GoType()
	}
	return reflect.ArrayOf(c.Len(), c.Type.GoType())
}

func (b *ROOTBackend) CreateTable(table *Table, columns []Column) error {
	tree := &rootTree{
		name:    table.Name,
		columns: columns,
		values:  make([]reflect.Value, len(columns)),
	}
	vars := make([]rtree.WriteVar, len(columns))
	for i, c := range columns {
		ptr := reflect.New(branchType(c))
		tree.values[i] = ptr.Elem()
		vars[i] = rtree.WriteVar{Name: c.Name, Value: ptr.Interface()}
	}

	opts := []rtree.WriteOption{rtree.WithTitle(table.Title)}
	if b.compressionLevel > 0 {
		opts = append(opts, rtree.WithZlib(b.compressionLevel))
	} else {
		opts = append(opts, rtree.WithoutCompression())
	}
	writer, err := rtree.NewWriter(b.dir, table.Name, vars, opts...)
	if err != nil {
		return err
	}
	tree.writer = writer
	b.trees[table.Kind] = tree
	return nil
}

func (b *ROOTBackend) WriteRows(kind TableKind, rows [][]any) error {
	tree := b.trees[kind]
	if tree == nil {
		return fmt.Errorf("%w: %v", ErrUnknownTable, kind)
	}
	for i, row := range rows {
		if len(row) != len(tree.columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(tree.columns))
		}
		for j, c := range tree.columns {
			if err := CheckValue(c, row[j]); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			v := reflect.ValueOf(row[j])
			if c.Shape == nil {
				tree.values[j].Set(v)
			} else {
				reflect.Copy(tree.values[j].Slice(0, c.Len()), v)
			}
		}
		if _, err := tree.writer.Write(); err != nil {
			return fmt.Errorf("error writing entry to %s: %w", tree.name, err)
		}
	}
	return nil
}

func (b *ROOTBackend) Close() error {
	logger.Info(fmt.Sprintf("Closing file %s", b.Filename), "root")
	var errs []error
	// trees must be closed before their file
	for _, tree := range b.trees {
		if tree == nil {
			continue
		}
		if err := tree.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing tree %s: %w", tree.name, err))
		}
	}
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
