package converter

import "fmt"

type MemoryTable struct {
	Table   *Table
	Columns []Column
	Rows    [][]any
	Writes  int
}

// Column returns the values of one column.
func (t *MemoryTable) Column(name string) ([]any, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			values := make([]any, len(t.Rows))
			for j, row := range t.Rows {
				values[j] = row[i]
			}
			return values, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrColumnMissing, t.Table.Name, name)
}

// MemoryBackend keeps every table in memory.
type MemoryBackend struct {
	Tables map[TableKind]*MemoryTable
	Closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{Tables: make(map[TableKind]*MemoryTable)}
}

func (m *MemoryBackend) CreateTable(table *Table, columns []Column) error {
	if _, ok := m.Tables[table.Kind]; ok {
		return fmt.Errorf("table %s already exists", table.Name)
	}
	m.Tables[table.Kind] = &MemoryTable{Table: table, Columns: columns}
	return nil
}

func (m *MemoryBackend) WriteRows(kind TableKind, rows [][]any) error {
	t, ok := m.Tables[kind]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownTable, kind)
	}
	t.Rows = append(t.Rows, rows...)
	t.Writes++
	return nil
}

func (m *MemoryBackend) Close() error {
	m.Closed = true
	return nil
}
