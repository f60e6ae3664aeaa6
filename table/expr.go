package table

import "github.com/apache/arrow/go/v17/arrow"

// Expr is a column expression: given a table, it produces one output
// column. A full expression compiler is explicitly out of scope; this
// is the minimal surface the instruction algebra needs to exercise
// Project, Filter, Sample and Aggregate without one. A ColumnRef
// covers "select an existing column, optionally renamed"; a FuncExpr
// covers anything a caller wants to derive.
type Expr interface {
	// OutputName is the name the evaluated column takes in the result.
	OutputName() string
	// Eval evaluates the expression over t, returning one value (and a
	// null flag) per row.
	Eval(t *Table) (values []interface{}, nulls []bool, dt arrow.DataType)
}

// ColumnRef selects an existing column, optionally under a new name.
type ColumnRef struct {
	Column string
	As     string
}

// Col builds a ColumnRef for the given column name.
func Col(name string) ColumnRef { return ColumnRef{Column: name} }

// Alias returns a copy of the reference under a new output name.
func (c ColumnRef) Alias(name string) ColumnRef { c.As = name; return c }

func (c ColumnRef) OutputName() string {
	if c.As != "" {
		return c.As
	}
	return c.Column
}

func (c ColumnRef) Eval(t *Table) ([]interface{}, []bool, arrow.DataType) {
	col := t.column(c.Column)
	n := t.NumRows()
	values := make([]interface{}, n)
	nulls := make([]bool, n)
	for i := 0; i < n; i++ {
		v, isNull := value(col, i)
		values[i] = v
		nulls[i] = isNull
	}
	return values, nulls, fieldType(t, c.Column)
}

func fieldType(t *Table, column string) arrow.DataType {
	i := t.columnIndex(column)
	return t.schema.Field(i).Type
}

// FuncExpr derives a new column by applying Fn to each row of the
// table. It stands in for the column-expression algebra (arithmetic,
// casts, UDFs, ...) that a real query engine compiles ahead of time.
type FuncExpr struct {
	Name string
	Type arrow.DataType
	Fn   func(row RowView) (interface{}, bool)
}

func (f FuncExpr) OutputName() string { return f.Name }

func (f FuncExpr) Eval(t *Table) ([]interface{}, []bool, arrow.DataType) {
	n := t.NumRows()
	values := make([]interface{}, n)
	nulls := make([]bool, n)
	for i := 0; i < n; i++ {
		v, isNull := f.Fn(RowView{t: t, row: i})
		values[i] = v
		nulls[i] = isNull
	}
	return values, nulls, f.Type
}

// RowView exposes read access to a single row of a table, for use by
// FuncExpr and Predicate callbacks.
type RowView struct {
	t   *Table
	row int
}

// RowViewFor builds a RowView onto row r of t, for callers outside the
// package (e.g. tests) that need read access to a single row.
func RowViewFor(t *Table, r int) RowView {
	return RowView{t: t, row: r}
}

// Get returns the value of the named column in this row, and whether
// it is null.
func (r RowView) Get(column string) (interface{}, bool) {
	return value(r.t.column(column), r.row)
}

// Predicate is a row-level boolean test, the opaque "predicate" value
// Filter consumes.
type Predicate func(row RowView) bool

// Projection is an ordered list of output expressions, the opaque
// "projection" value Project and Aggregate's group-by consume.
type Projection []Expr

// ColumnNames returns the projection's output column names in order.
func (p Projection) ColumnNames() []string {
	names := make([]string, len(p))
	for i, e := range p {
		names[i] = e.OutputName()
	}
	return names
}

// ToColumnRefs converts every expression in the projection to a plain
// reference to its own output column. This mirrors
// ExpressionsProjection.to_column_expressions, used by
// ReduceToQuantiles to avoid re-evaluating sort expressions that an
// upstream Sample has already materialized.
func (p Projection) ToColumnRefs() Projection {
	out := make(Projection, len(p))
	for i, e := range p {
		out[i] = Col(e.OutputName())
	}
	return out
}
