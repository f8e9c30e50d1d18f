package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/value"
)

var foldCase = cases.Fold()

// foldedEqual reports whether a and b are equal under Unicode case
// folding — used for case-insensitive column-name lookup (spec.md §6).
// golang.org/x/text/cases replaces a hand-rolled ASCII-only upper()
// helper (the kind the teacher's internal/engine/lexer.go hand-rolls for
// keyword recognition) with a language-independent Unicode case fold.
func foldedEqual(a, b string) bool {
	return foldCase.String(a) == foldCase.String(b)
}

// ColumnTypeKind discriminates a column's storage type.
type ColumnTypeKind int

const (
	ColInteger ColumnTypeKind = iota
	ColFloat
	ColBoolean
	ColVarchar
)

// ColumnType is a column's declared storage type. Only VarcharLen is
// meaningful when Kind is ColVarchar.
type ColumnType struct {
	Kind       ColumnTypeKind
	VarcharLen uint16
}

func Integer() ColumnType           { return ColumnType{Kind: ColInteger} }
func Float() ColumnType             { return ColumnType{Kind: ColFloat} }
func Boolean() ColumnType           { return ColumnType{Kind: ColBoolean} }
func Varchar(n uint16) ColumnType   { return ColumnType{Kind: ColVarchar, VarcharLen: n} }

// ByteSize returns the fixed on-disk width of a value of this type.
func (c ColumnType) ByteSize() int {
	switch c.Kind {
	case ColInteger, ColFloat:
		return 8
	case ColBoolean:
		return 1
	case ColVarchar:
		return 2 + int(c.VarcharLen)
	default:
		return 0
	}
}

func (c ColumnType) String() string {
	switch c.Kind {
	case ColInteger:
		return "INTEGER"
	case ColFloat:
		return "FLOAT"
	case ColBoolean:
		return "BOOLEAN"
	case ColVarchar:
		return fmt.Sprintf("VARCHAR(%d)", c.VarcharLen)
	default:
		return "UNKNOWN"
	}
}

// ColumnDef is one (name, type) pair in a table schema.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// TableSchema is an ordered list of columns plus the cached fixed row size.
type TableSchema struct {
	TableName string
	Columns   []ColumnDef
	RowSize   int
}

// NewTableSchema computes the cached row size (bitmap + sum of column
// widths) for the given columns.
func NewTableSchema(tableName string, columns []ColumnDef) TableSchema {
	bitmapSize := bitmapBytes(len(columns))
	rowSize := bitmapSize
	for _, c := range columns {
		rowSize += c.Type.ByteSize()
	}
	return TableSchema{TableName: tableName, Columns: columns, RowSize: rowSize}
}

func bitmapBytes(k int) int { return (k + 7) / 8 }

// BitmapSize returns ceil(k/8), the null-bitmap prefix length.
func (s TableSchema) BitmapSize() int { return bitmapBytes(len(s.Columns)) }

// FindColumn returns the index of name under case-insensitive lookup, or
// -1 if absent.
func (s TableSchema) FindColumn(name string) int {
	for i, c := range s.Columns {
		if foldedEqual(c.Name, name) {
			return i
		}
	}
	return -1
}

// SerializeRow encodes values into the schema's fixed-width row layout.
// Overlong Varchar strings are silently truncated to the declared length
// (spec.md §3, §4.3; called out as a possible latent bug in §9, but kept
// here since spec.md's round-trip property and original_source both treat
// it as the defined behavior — see DESIGN.md).
func SerializeRow(schema TableSchema, values []value.Value) ([]byte, error) {
	if len(values) != len(schema.Columns) {
		return nil, dberr.NewValueCountMismatch(len(schema.Columns), len(values))
	}

	buf := make([]byte, schema.RowSize)
	bitmapSize := schema.BitmapSize()
	offset := bitmapSize

	for i, col := range schema.Columns {
		size := col.Type.ByteSize()
		v := values[i]
		if v.IsNull() {
			buf[i/8] |= 1 << uint(i%8)
			offset += size
			continue
		}

		switch col.Type.Kind {
		case ColInteger:
			if v.Kind != value.Integer {
				return nil, dberr.NewTypeMismatch("INTEGER", kindName(v.Kind))
			}
			binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(v.I))
		case ColFloat:
			if v.Kind != value.Float {
				return nil, dberr.NewTypeMismatch("FLOAT", kindName(v.Kind))
			}
			binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(v.F))
		case ColBoolean:
			if v.Kind != value.Boolean {
				return nil, dberr.NewTypeMismatch("BOOLEAN", kindName(v.Kind))
			}
			if v.B {
				buf[offset] = 1
			}
		case ColVarchar:
			if v.Kind != value.Text {
				return nil, dberr.NewTypeMismatch(col.Type.String(), kindName(v.Kind))
			}
			strBytes := []byte(v.S)
			n := len(strBytes)
			if n > int(col.Type.VarcharLen) {
				n = int(col.Type.VarcharLen)
			}
			binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(n))
			copy(buf[offset+2:offset+2+n], strBytes[:n])
		}
		offset += size
	}
	return buf, nil
}

// DeserializeRow is the mirror of SerializeRow. Varchar payloads are
// decoded with lossy UTF-8 replacement (invalid sequences become U+FFFD).
func DeserializeRow(schema TableSchema, data []byte) ([]value.Value, error) {
	out := make([]value.Value, len(schema.Columns))
	offset := schema.BitmapSize()

	for i, col := range schema.Columns {
		size := col.Type.ByteSize()
		isNull := data[i/8]&(1<<uint(i%8)) != 0
		if isNull {
			out[i] = value.NewNull()
			offset += size
			continue
		}

		switch col.Type.Kind {
		case ColInteger:
			out[i] = value.NewInteger(int64(binary.LittleEndian.Uint64(data[offset : offset+8])))
		case ColFloat:
			out[i] = value.NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8])))
		case ColBoolean:
			out[i] = value.NewBoolean(data[offset] != 0)
		case ColVarchar:
			n := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
			raw := data[offset+2 : offset+2+n]
			out[i] = value.NewText(lossyUTF8(raw))
		}
		offset += size
	}
	return out, nil
}

func lossyUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func kindName(k value.Kind) string {
	switch k {
	case value.Null:
		return "NULL"
	case value.Integer:
		return "INTEGER"
	case value.Float:
		return "FLOAT"
	case value.Boolean:
		return "BOOLEAN"
	case value.Text:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}
