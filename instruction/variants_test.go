package instruction_test

import (
	"sort"
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

func fuzzedTable(n int) *table.Table {
	fz := fuzz.New().NilChance(0).NumElements(n, n)
	var (
		keys   []string
		values []int64
	)
	fz.Fuzz(&keys)
	fz.Fuzz(&values)
	return table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})
}

func rowsOf(m []partition.PartialPartitionMetadata, i int) (uint64, bool) {
	return m[i].Rows()
}

func TestLocalLimitPropagateLaw(t *testing.T) {
	inst := instruction.LocalLimit{K: 10}

	known := []partition.PartialPartitionMetadata{partition.KnownRows(100)}
	out := inst.Propagate(known)
	if got, ok := rowsOf(out, 0); !ok || got != 10 {
		t.Fatalf("got %v (ok=%v), want 10", got, ok)
	}

	unknown := []partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()}
	out = inst.Propagate(unknown)
	if _, ok := rowsOf(out, 0); ok {
		t.Fatalf("propagate(None) should stay unknown")
	}
}

func TestSliceRunClampsAndPropagateMatches(t *testing.T) {
	tb := fuzzedTable(5)
	inst := instruction.Slice{Start: 3, End: 100}
	out := inst.Run([]*table.Table{tb})
	if out[0].NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", out[0].NumRows())
	}

	meta := inst.Propagate([]partition.PartialPartitionMetadata{partition.KnownRows(5)})
	if got, ok := rowsOf(meta, 0); !ok || got != 2 {
		t.Fatalf("propagate: got %v (ok=%v), want 2", got, ok)
	}

	unknownMeta := inst.Propagate([]partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()})
	if _, ok := rowsOf(unknownMeta, 0); ok {
		t.Fatalf("propagate with unknown input rows should stay unknown")
	}
}

func TestSliceFullRangeIsIdentity(t *testing.T) {
	tb := fuzzedTable(9)
	inst := instruction.Slice{Start: 0, End: tb.NumRows()}
	out := inst.Run([]*table.Table{tb})
	if out[0].NumRows() != tb.NumRows() {
		t.Fatalf("got %d rows, want %d", out[0].NumRows(), tb.NumRows())
	}
}

func TestReduceMergeIdentity(t *testing.T) {
	tb := fuzzedTable(50)
	out := instruction.ReduceMerge{}.Run([]*table.Table{tb})
	if out[0].NumRows() != tb.NumRows() {
		t.Fatalf("got %d rows, want %d", out[0].NumRows(), tb.NumRows())
	}
}

func TestFanoutHashThenReduceMergePreservesMultiset(t *testing.T) {
	values := make([]int64, 500)
	keys := make([]string, 500)
	for i := range values {
		values[i] = int64(i)
		keys[i] = string(rune('a' + i%26))
	}
	tb := table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})

	fanned := instruction.FanoutHash{NumOutputsField: 7, PartitionBy: []string{"key"}}.Run([]*table.Table{tb})
	merged := instruction.ReduceMerge{}.Run(fanned)

	if merged[0].NumRows() != tb.NumRows() {
		t.Fatalf("got %d rows, want %d", merged[0].NumRows(), tb.NumRows())
	}

	rec := merged[0].Record()
	got := make([]int64, rec.NumRows())
	col := rec.Column(1).(interface{ Value(int) int64 })
	for i := range got {
		got[i] = col.Value(i)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		if v != int64(i) {
			t.Fatalf("multiset mismatch at %d: got %d, want %d", i, v, i)
		}
	}
}

func TestLocalCountScenario(t *testing.T) {
	tb := fuzzedTable(42)
	out := instruction.LocalCount{}.Run([]*table.Table{tb})
	if out[0].NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", out[0].NumRows())
	}
	rec := out[0].Record()
	col := rec.Column(0).(interface{ Value(int) int64 })
	if got := col.Value(0); got != 42 {
		t.Fatalf("got count %d, want 42", got)
	}

	meta := instruction.LocalCount{}.Propagate([]partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()})
	if got, ok := rowsOf(meta, 0); !ok || got != 1 {
		t.Fatalf("propagate: got %v (ok=%v), want 1", got, ok)
	}
	if size, ok := meta[0].Size(); !ok || size != 104 {
		t.Fatalf("propagate size: got %v (ok=%v), want 104", size, ok)
	}
}

func TestReduceToQuantilesPropagateReportsK(t *testing.T) {
	inst := instruction.ReduceToQuantiles{K: 4, SortBy: table.Projection{table.Col("value")}}
	out := inst.Propagate([]partition.PartialPartitionMetadata{partition.KnownRows(30)})
	if got, ok := rowsOf(out, 0); !ok || got != 4 {
		t.Fatalf("Propagate: got %v (ok=%v), want 4 (K, not K-1)", got, ok)
	}
}

func TestFanoutRangeSingleOutputReturnsInputUnchanged(t *testing.T) {
	tb := fuzzedTable(10)
	boundaries := table.FromColumns([]string{"value"}, []interface{}{[]int64{}})
	inst := instruction.FanoutRange{NumOutputsField: 1, SortBy: []string{"value"}, Descending: []bool{false}}
	out := inst.Run([]*table.Table{boundaries, tb})
	if len(out) != 1 || out[0] != tb {
		t.Fatalf("FanoutRange(1) should return the input table unchanged")
	}
}
