package table

import (
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
)

// Concat concatenates tables in order. All tables must share a
// schema. Concat([t]) == t for a single-element input.
func Concat(tables []*Table) *Table {
	if len(tables) == 0 {
		panic("table: Concat requires at least one table")
	}
	schema := tables[0].schema
	total := 0
	for _, t := range tables {
		total += t.NumRows()
	}
	rec := buildRecord(schema, total, func(c, r int) (interface{}, bool) {
		row := r
		for _, t := range tables {
			if row < t.NumRows() {
				return value(t.record.Column(c), row)
			}
			row -= t.NumRows()
		}
		panic("table: Concat: row index out of range")
	})
	return New(schema, rec)
}

// Take returns a new table containing the rows at the given indices,
// in the given order. Indices may repeat.
func (t *Table) Take(indices []int) *Table {
	rec := buildRecord(t.schema, len(indices), func(c, r int) (interface{}, bool) {
		return value(t.record.Column(c), indices[r])
	})
	return New(t.schema, rec)
}

// Head returns the first k rows (or all rows if k >= NumRows).
func (t *Table) Head(k int) *Table {
	n := t.NumRows()
	if k < n {
		n = k
	}
	if k < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.Take(idx)
}

// Slice returns rows [start, end), clamping end to NumRows. start
// must be non-negative; a negative start is an invariant violation
// the caller (instruction.Slice) is responsible for rejecting before
// calling this.
func (t *Table) Slice(start, end int) *Table {
	n := t.NumRows()
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return t.Take(idx)
}

// Filter returns the rows for which pred returns true, preserving
// order.
func (t *Table) Filter(pred Predicate) *Table {
	var idx []int
	for i := 0; i < t.NumRows(); i++ {
		if pred(RowView{t: t, row: i}) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// EvalExpressionList evaluates every expression in proj against t and
// returns a new table of the results, in projection order. This is the
// Table-level primitive behind both Project and Sample's sort-key
// evaluation.
func (t *Table) EvalExpressionList(proj Projection) *Table {
	n := t.NumRows()
	fields := make([]arrow.Field, len(proj))
	values := make([][]interface{}, len(proj))
	nulls := make([][]bool, len(proj))
	for i, e := range proj {
		v, nl, dt := e.Eval(t)
		values[i] = v
		nulls[i] = nl
		fields[i] = arrow.Field{Name: e.OutputName(), Type: dt, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := buildRecord(schema, n, func(c, r int) (interface{}, bool) {
		return values[c][r], nulls[c][r]
	})
	return New(schema, rec)
}

// Sort returns a new table sorted by the named keys (stable, so ties
// preserve input order), honoring a per-key descending flag.
func (t *Table) Sort(keys []string, descending []bool) *Table {
	n := t.NumRows()
	cols := make([]arrow.Array, len(keys))
	for i, k := range keys {
		cols[i] = t.column(k)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := idx[a], idx[b]
		for i, col := range cols {
			va, na := value(col, ra)
			vb, nb := value(col, rb)
			cmp := compare(va, na, vb, nb)
			if cmp == 0 {
				continue
			}
			if descending[i] {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return t.Take(idx)
}

// compare orders two scalar cell values in ascending order, with a
// null after every non-null value. Callers that reverse the result
// for a descending key (Sort, bucketFor) therefore place nulls first
// for that key.
func compare(a interface{}, aNull bool, b interface{}, bNull bool) int {
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return 1
	case bNull:
		return -1
	}
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	default:
		panic("table: unsupported type in compare")
	}
}
