package converter

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CheckValue reports whether v is a valid cell of column c.
func CheckValue(c Column, v any) error {
	if c.Shape == nil {
		if t := fmt.Sprintf("%T", v); t != c.Type.String() {
			return fmt.Errorf("column %s: got %s, want %s", c.Name, t, c.Type)
		}
		return nil
	}
	n, err := sliceLen(c.Type, v)
	if err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	if n != c.Len() {
		return fmt.Errorf("column %s: got %d elements, want %d", c.Name, n, c.Len())
	}
	return nil
}

func sliceLen(t Type, v any) (int, error) {
	switch t {
	case Int32:
		if s, ok := v.([]int32); ok {
			return len(s), nil
		}
	case Float32:
		if s, ok := v.([]float32); ok {
			return len(s), nil
		}
	case Float64:
		if s, ok := v.([]float64); ok {
			return len(s), nil
		}
	}
	return 0, fmt.Errorf("got %T, want []%s", v, t)
}

// appendCell appends the native-endian bytes of one cell.
func appendCell(buf []byte, c Column, v any) ([]byte, error) {
	if err := CheckValue(c, v); err != nil {
		return buf, err
	}
	order := binary.NativeEndian
	switch x := v.(type) {
	case int8:
		return append(buf, byte(x)), nil
	case uint8:
		return append(buf, x), nil
	case int16:
		return order.AppendUint16(buf, uint16(x)), nil
	case uint16:
		return order.AppendUint16(buf, x), nil
	case int32:
		return order.AppendUint32(buf, uint32(x)), nil
	case uint32:
		return order.AppendUint32(buf, x), nil
	case int64:
		return order.AppendUint64(buf, uint64(x)), nil
	case uint64:
		return order.AppendUint64(buf, x), nil
	case float32:
		return order.AppendUint32(buf, math.Float32bits(x)), nil
	case float64:
		return order.AppendUint64(buf, math.Float64bits(x)), nil
	case []int32:
		for _, e := range x {
			buf = order.AppendUint32(buf, uint32(e))
		}
		return buf, nil
	case []float32:
		for _, e := range x {
			buf = order.AppendUint32(buf, math.Float32bits(e))
		}
		return buf, nil
	case []float64:
		for _, e := range x {
			buf = order.AppendUint64(buf, math.Float64bits(e))
		}
		return buf, nil
	}
	return buf, fmt.Errorf("column %s: unsupported value %T", c.Name, v)
}

// encodeRows packs rows into one buffer, row after row, with cells laid out
// back to back in column order.
func encodeRows(columns []Column, rows [][]any) ([]byte, error) {
	rowSize := 0
	for _, c := range columns {
		rowSize += c.Size()
	}
	buf := make([]byte, 0, rowSize*len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, c := range columns {
			var err error
			if buf, err = appendCell(buf, c, row[j]); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
	}
	return buf, nil
}
