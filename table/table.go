// Package table implements the columnar Table value that the
// instruction algebra operates over. It is backed by Apache Arrow
// in-memory records; every operation the instruction pipelines need is
// implemented directly against typed Arrow arrays rather than
// delegated to an external engine, since the Table primitive itself is
// not an external collaborator for this module.
package table

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Allocator is the shared Arrow memory allocator used by every Table
// operation in this package.
var Allocator memory.Allocator = memory.NewGoAllocator()

// Table is an in-memory columnar partition.
type Table struct {
	schema *arrow.Schema
	record arrow.Record
}

// New wraps an already-built Arrow record as a Table.
func New(schema *arrow.Schema, record arrow.Record) *Table {
	return &Table{schema: schema, record: record}
}

// Schema returns the table's schema.
func (t *Table) Schema() *arrow.Schema { return t.schema }

// NumRows returns the table's row count.
func (t *Table) NumRows() int { return int(t.record.NumRows()) }

// NumCols returns the table's column count.
func (t *Table) NumCols() int { return int(t.record.NumCols()) }

// Record exposes the underlying Arrow record for callers that need to
// interoperate with other Arrow-based code.
func (t *Table) Record() arrow.Record { return t.record }

// ColumnNames returns the schema's field names in order.
func (t *Table) ColumnNames() []string {
	fields := t.schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Release frees the underlying Arrow record. Tables produced by this
// package's operations own independently-allocated records, so
// releasing one Table never invalidates another.
func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
	}
}

// columnIndex returns the index of the named column, or -1.
func (t *Table) columnIndex(name string) int {
	for i, f := range t.schema.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// column returns the named column's Arrow array, panicking if it does
// not exist -- a logic bug in the caller, not an input error (the
// plan/expression layer is responsible for validating column
// references before they reach the Table).
func (t *Table) column(name string) arrow.Array {
	i := t.columnIndex(name)
	if i < 0 {
		panic(fmt.Sprintf("table: no such column %q", name))
	}
	return t.record.Column(i)
}

// value returns the value (and null flag) of column c, row r.
func value(col arrow.Array, r int) (interface{}, bool) {
	if col.IsNull(r) {
		return nil, true
	}
	switch c := col.(type) {
	case *array.Int64:
		return c.Value(r), false
	case *array.Float64:
		return c.Value(r), false
	case *array.String:
		return c.Value(r), false
	case *array.Boolean:
		return c.Value(r), false
	default:
		panic(fmt.Sprintf("table: unsupported column type %T", col))
	}
}

func newBuilder(dt arrow.DataType) array.Builder {
	switch dt.ID() {
	case arrow.INT64:
		return array.NewInt64Builder(Allocator)
	case arrow.FLOAT64:
		return array.NewFloat64Builder(Allocator)
	case arrow.STRING:
		return array.NewStringBuilder(Allocator)
	case arrow.BOOL:
		return array.NewBooleanBuilder(Allocator)
	default:
		panic(fmt.Sprintf("table: unsupported arrow type %v", dt))
	}
}

func appendValue(b array.Builder, v interface{}, isNull bool) {
	if isNull || v == nil {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.Int64Builder:
		bb.Append(v.(int64))
	case *array.Float64Builder:
		bb.Append(v.(float64))
	case *array.StringBuilder:
		bb.Append(v.(string))
	case *array.BooleanBuilder:
		bb.Append(v.(bool))
	default:
		panic(fmt.Sprintf("table: unsupported builder %T", b))
	}
}

// cellFunc supplies the value for column c, output row r when building
// a new record.
type cellFunc func(c, r int) (interface{}, bool)

// buildRecord constructs a new Arrow record of the given schema and
// row count, pulling each cell from get.
func buildRecord(schema *arrow.Schema, rows int, get cellFunc) arrow.Record {
	n := schema.NumFields()
	builders := make([]array.Builder, n)
	for i := 0; i < n; i++ {
		builders[i] = newBuilder(schema.Field(i).Type)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()
	for r := 0; r < rows; r++ {
		for c := 0; c < n; c++ {
			v, isNull := get(c, r)
			appendValue(builders[c], v, isNull)
		}
	}
	cols := make([]arrow.Array, n)
	for i := range builders {
		cols[i] = builders[i].NewArray()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(schema, cols, int64(rows))
}

// FromColumns builds a Table from named, homogeneously-typed Go
// slices, used by LocalCount to materialize its single scalar column
// without going through the expression evaluator.
func FromColumns(names []string, columns []interface{}) *Table {
	if len(names) != len(columns) {
		panic("table: FromColumns: names and columns length mismatch")
	}
	fields := make([]arrow.Field, len(names))
	rows := 0
	for i, col := range columns {
		dt, n := inferColumn(col)
		fields[i] = arrow.Field{Name: names[i], Type: dt, Nullable: false}
		if i == 0 {
			rows = n
		} else if n != rows {
			panic("table: FromColumns: column length mismatch")
		}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := buildRecord(schema, rows, func(c, r int) (interface{}, bool) {
		return columnGo(columns[c], r), false
	})
	return New(schema, rec)
}

func inferColumn(col interface{}) (arrow.DataType, int) {
	switch v := col.(type) {
	case []int64:
		return arrow.PrimitiveTypes.Int64, len(v)
	case []float64:
		return arrow.PrimitiveTypes.Float64, len(v)
	case []string:
		return arrow.BinaryTypes.String, len(v)
	case []bool:
		return arrow.FixedWidthTypes.Boolean, len(v)
	default:
		panic(fmt.Sprintf("table: FromColumns: unsupported column type %T", col))
	}
}

func columnGo(col interface{}, r int) interface{} {
	switch v := col.(type) {
	case []int64:
		return v[r]
	case []float64:
		return v[r]
	case []string:
		return v[r]
	case []bool:
		return v[r]
	default:
		panic(fmt.Sprintf("table: unsupported column type %T", col))
	}
}
