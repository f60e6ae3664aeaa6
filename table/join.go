package table

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
)

// JoinHow names the supported join variants.
type JoinHow string

const (
	JoinInner JoinHow = "inner"
	JoinLeft  JoinHow = "left"
	JoinRight JoinHow = "right"
	JoinOuter JoinHow = "outer"
)

// Join joins t (left) with right on the given key columns, producing
// output columns per outputProjection (evaluated against a synthetic
// joined row view -- see joinRow). how selects the join variant.
func (t *Table) Join(right *Table, leftOn, rightOn []string, outputProjection Projection, how JoinHow) *Table {
	if len(leftOn) != len(rightOn) {
		panic("table: Join: leftOn/rightOn length mismatch")
	}
	rightIndex := make(map[string][]int)
	rCols := make([]arrow.Array, len(rightOn))
	for i, k := range rightOn {
		rCols[i] = right.column(k)
	}
	for i := 0; i < right.NumRows(); i++ {
		rightIndex[groupKey(rCols, i)] = append(rightIndex[groupKey(rCols, i)], i)
	}

	lCols := make([]arrow.Array, len(leftOn))
	for i, k := range leftOn {
		lCols[i] = t.column(k)
	}

	type pair struct{ l, r int } // r == -1 means unmatched left; l == -1 means unmatched right
	var pairs []pair
	matchedRight := make(map[int]bool)
	for i := 0; i < t.NumRows(); i++ {
		key := groupKey(lCols, i)
		matches := rightIndex[key]
		if len(matches) == 0 {
			if how == JoinLeft || how == JoinOuter {
				pairs = append(pairs, pair{i, -1})
			}
			continue
		}
		for _, j := range matches {
			pairs = append(pairs, pair{i, j})
			matchedRight[j] = true
		}
	}
	if how == JoinRight || how == JoinOuter {
		for j := 0; j < right.NumRows(); j++ {
			if !matchedRight[j] {
				pairs = append(pairs, pair{-1, j})
			}
		}
	}

	n := len(pairs)
	fields := make([]arrow.Field, len(outputProjection))
	for i, e := range outputProjection {
		fields[i] = arrow.Field{Name: e.OutputName(), Type: joinExprType(t, right, e), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := buildRecord(schema, n, func(c, r int) (interface{}, bool) {
		p := pairs[r]
		jr := joinRow{left: t, leftRow: p.l, right: right, rightRow: p.r}
		return outputProjection[c].(joinExpr).evalJoin(jr)
	})
	return New(schema, rec)
}

// joinExpr is implemented by expressions usable inside a Join's output
// projection: a plain left- or right-side column reference.
type joinExpr interface {
	evalJoin(r joinRow) (interface{}, bool)
}

// joinRow is a row formed by pairing a left and (possibly absent)
// right row, or vice versa.
type joinRow struct {
	left     *Table
	leftRow  int // -1 if unmatched
	right    *Table
	rightRow int // -1 if unmatched
}

// LeftCol and RightCol reference a column from one side of a join's
// output projection.
type LeftCol struct {
	Column string
	As     string
}

func (c LeftCol) OutputName() string {
	if c.As != "" {
		return c.As
	}
	return c.Column
}
func (c LeftCol) Eval(t *Table) ([]interface{}, []bool, arrow.DataType) {
	panic("table: LeftCol must be evaluated via Join, not EvalExpressionList")
}
func (c LeftCol) evalJoin(r joinRow) (interface{}, bool) {
	if r.leftRow < 0 {
		return nil, true
	}
	return value(r.left.column(c.Column), r.leftRow)
}

type RightCol struct {
	Column string
	As     string
}

func (c RightCol) OutputName() string {
	if c.As != "" {
		return c.As
	}
	return c.Column
}
func (c RightCol) Eval(t *Table) ([]interface{}, []bool, arrow.DataType) {
	panic("table: RightCol must be evaluated via Join, not EvalExpressionList")
}
func (c RightCol) evalJoin(r joinRow) (interface{}, bool) {
	if r.rightRow < 0 {
		return nil, true
	}
	return value(r.right.column(c.Column), r.rightRow)
}

func joinExprType(left, right *Table, e Expr) arrow.DataType {
	switch c := e.(type) {
	case LeftCol:
		return fieldType(left, c.Column)
	case RightCol:
		return fieldType(right, c.Column)
	default:
		panic(fmt.Sprintf("table: Join: unsupported output expression %T", e))
	}
}
