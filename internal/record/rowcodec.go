// Package record defines the schema and wire format SeqScan and Delete
// decode table rows with, independent of how a page stores the bytes.
package record

import (
	"errors"
	"math"

	"github.com/relkit/relkit/internal/bx"
)

// ColumnType is the wire type of one column's value.
type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat64
	ColText  // UTF-8
	ColBytes // opaque bytes
)

// Column names and types one field of a row.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is the ordered column list a table's rows are encoded against.
type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColumnIndex returns the position of the column named name, so callers
// that only know a column by name (an index's key columns, a projection
// list) can locate its slot in an encoded or decoded row.
func (s Schema) ColumnIndex(name string) (int, bool) {
	for i, col := range s.Cols {
		if col.Name == name {
			return i, true
		}
	}
	return 0, false
}

var (
	// ErrSchemaMismatch is returned for a value-count mismatch against the schema.
	ErrSchemaMismatch = errors.New("record: value count does not match schema")
	// ErrSchemaMismatchNotAllowNull is returned when a non-nullable column gets nil.
	ErrSchemaMismatchNotAllowNull = errors.New("record: column is not nullable")
	// ErrSchemaMismatchNotInt32 is returned when a value can't be coerced to its column's type.
	ErrSchemaMismatchNotInt32 = errors.New("record: value does not match column type")
	ErrBadBuffer              = errors.New("record: buffer too short to decode")
	ErrVarTooLong             = errors.New("record: variable-length value exceeds u16")
	ErrUnsupportedType        = errors.New("record: unsupported column type")
)

// EncodeRow packs values according to schema into a compact tuple:
//
//	[nullmap: ceil(N/8) bytes, bit=1 => NULL] [field0] [field1] ...
//
// Fixed-width fields (int32/int64/bool/float64) are stored inline;
// variable-width fields (text/bytes) are length-prefixed (u16 LE).
func EncodeRow(s Schema, values []any) ([]byte, error) {
	nc := s.NumCols()
	if len(values) != nc {
		return nil, ErrSchemaMismatch
	}

	nullmapLen := (nc + 7) / 8
	out := make([]byte, nullmapLen)

	for i, col := range s.Cols {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrSchemaMismatchNotAllowNull
			}
			out[i/8] |= 1 << (uint(i) & 7)
			continue
		}

		switch col.Type {
		case ColInt32:
			x, ok := asInt32(v)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			var b [4]byte
			bx.PutU32(b[:], uint32(x))
			out = append(out, b[:]...)

		case ColInt64:
			x, ok := asInt64(v)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			var b [8]byte
			bx.PutU64(b[:], uint64(x))
			out = append(out, b[:]...)

		case ColBool:
			x, ok := v.(bool)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		case ColFloat64:
			x, ok := asFloat64(v)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			var b [8]byte
			bx.PutU64(b[:], math.Float64bits(x))
			out = append(out, b[:]...)

		case ColText:
			str, ok := v.(string)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			bs := []byte(str)
			if len(bs) > math.MaxUint16 {
				return nil, ErrVarTooLong
			}
			var l [2]byte
			bx.PutU16(l[:], uint16(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		case ColBytes:
			bs, ok := v.([]byte)
			if !ok {
				return nil, ErrSchemaMismatchNotInt32
			}
			if len(bs) > math.MaxUint16 {
				return nil, ErrVarTooLong
			}
			var l [2]byte
			bx.PutU16(l[:], uint16(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		default:
			return nil, ErrUnsupportedType
		}
	}
	return out, nil
}

// DecodeRow reverses EncodeRow.
func DecodeRow(s Schema, buf []byte) ([]any, error) {
	nc := s.NumCols()
	nullmapLen := (nc + 7) / 8
	if len(buf) < nullmapLen {
		return nil, ErrBadBuffer
	}
	nullmap := buf[:nullmapLen]
	i := nullmapLen

	out := make([]any, nc)
	for col := range s.Cols {
		isNull := (nullmap[col/8]>>(uint(col)&7))&1 == 1
		if isNull {
			out[col] = nil
			continue
		}

		switch s.Cols[col].Type {
		case ColInt32:
			if i+4 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[col] = int32(bx.U32(buf[i : i+4]))
			i += 4

		case ColInt64:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[col] = int64(bx.U64(buf[i : i+8]))
			i += 8

		case ColBool:
			if i+1 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[col] = buf[i] != 0
			i++

		case ColFloat64:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[col] = math.Float64frombits(bx.U64(buf[i : i+8]))
			i += 8

		case ColText:
			if i+2 > len(buf) {
				return nil, ErrBadBuffer
			}
			l := int(bx.U16(buf[i : i+2]))
			i += 2
			if i+l > len(buf) {
				return nil, ErrBadBuffer
			}
			out[col] = string(buf[i : i+l])
			i += l

		case ColBytes:
			if i+2 > len(buf) {
				return nil, ErrBadBuffer
			}
			l := int(bx.U16(buf[i : i+2]))
			i += 2
			if i+l > len(buf) {
				return nil, ErrBadBuffer
			}
			cp := make([]byte, l)
			copy(cp, buf[i:i+l])
			out[col] = cp
			i += l

		default:
			return nil, ErrUnsupportedType
		}
	}
	return out, nil
}

func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}
