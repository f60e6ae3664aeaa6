package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

// AggFunc names the supported aggregation functions.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggCount
	AggMin
	AggMax
	AggMean
)

// AggExpr is one aggregation to compute: Fn(Column) aliased as As.
type AggExpr struct {
	Column string
	Fn     AggFunc
	As     string
}

func (a AggExpr) outputName() string {
	if a.As != "" {
		return a.As
	}
	return fmt.Sprintf("%s_%s", aggFuncName(a.Fn), a.Column)
}

func aggFuncName(f AggFunc) string {
	switch f {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggMean:
		return "mean"
	default:
		return "agg"
	}
}

// Agg aggregates the table by the (optional) groupBy columns,
// computing each AggExpr per group. A nil/empty groupBy produces a
// single output row.
func (t *Table) Agg(aggs []AggExpr, groupBy []string) *Table {
	n := t.NumRows()
	groups := make(map[string][]int)
	var order []string
	keyCols := make([]arrow.Array, len(groupBy))
	for i, g := range groupBy {
		keyCols[i] = t.column(g)
	}
	for i := 0; i < n; i++ {
		key := groupKey(keyCols, i)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	if len(groupBy) == 0 {
		order = []string{""}
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		groups[""] = all
	}

	fields := make([]arrow.Field, 0, len(groupBy)+len(aggs))
	for _, g := range groupBy {
		fields = append(fields, arrow.Field{Name: g, Type: fieldType(t, g), Nullable: true})
	}
	for _, a := range aggs {
		dt := arrow.PrimitiveTypes.Float64
		if a.Fn == AggCount {
			dt = arrow.PrimitiveTypes.Int64
		}
		fields = append(fields, arrow.Field{Name: a.outputName(), Type: dt, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	rows := len(order)
	rec := buildRecord(schema, rows, func(c, r int) (interface{}, bool) {
		idx := groups[order[r]]
		if c < len(groupBy) {
			return value(keyCols[c], idx[0])
		}
		a := aggs[c-len(groupBy)]
		return computeAgg(t, a, idx)
	})
	return New(schema, rec)
}

func groupKey(cols []arrow.Array, row int) string {
	var b strings.Builder
	for _, c := range cols {
		v, isNull := value(c, row)
		if isNull {
			b.WriteString("\x00null\x00|")
			continue
		}
		fmt.Fprintf(&b, "%v|", v)
	}
	return b.String()
}

func computeAgg(t *Table, a AggExpr, rows []int) (interface{}, bool) {
	col := t.column(a.Column)
	if a.Fn == AggCount {
		count := int64(0)
		for _, r := range rows {
			if _, isNull := value(col, r); !isNull {
				count++
			}
		}
		return count, false
	}
	var (
		sum     float64
		count   int
		minV    float64
		maxV    float64
		started bool
	)
	for _, r := range rows {
		v, isNull := value(col, r)
		if isNull {
			continue
		}
		f := toFloat(v)
		sum += f
		count++
		if !started || f < minV {
			minV = f
		}
		if !started || f > maxV {
			maxV = f
		}
		started = true
	}
	if count == 0 {
		return nil, true
	}
	switch a.Fn {
	case AggSum:
		return sum, false
	case AggMin:
		return minV, false
	case AggMax:
		return maxV, false
	case AggMean:
		return sum / float64(count), false
	default:
		panic("table: unsupported agg func")
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		panic(fmt.Sprintf("table: agg: non-numeric value %T", v))
	}
}
