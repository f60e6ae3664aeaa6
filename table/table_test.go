package table_test

import (
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/gridtable/gridtable/table"
)

func fuzzedTable(t *testing.T, n int) *table.Table {
	t.Helper()
	fz := fuzz.New().NilChance(0).NumElements(n, n)
	var (
		keys   []string
		values []int64
	)
	fz.Fuzz(&keys)
	fz.Fuzz(&values)
	return table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})
}

func TestConcatIdentity(t *testing.T) {
	tb := fuzzedTable(t, 100)
	got := table.Concat([]*table.Table{tb})
	if got.NumRows() != tb.NumRows() {
		t.Fatalf("got %d rows, want %d", got.NumRows(), tb.NumRows())
	}
}

func TestConcatSumsRows(t *testing.T) {
	a := fuzzedTable(t, 10)
	b := fuzzedTable(t, 15)
	got := table.Concat([]*table.Table{a, b})
	if got.NumRows() != 25 {
		t.Fatalf("got %d rows, want 25", got.NumRows())
	}
}

func TestSliceClamps(t *testing.T) {
	tb := fuzzedTable(t, 5)
	got := tb.Slice(3, 100)
	if got.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", got.NumRows())
	}
}

func TestSliceFullRangeIsIdentity(t *testing.T) {
	tb := fuzzedTable(t, 7)
	got := tb.Slice(0, tb.NumRows())
	if got.NumRows() != tb.NumRows() {
		t.Fatalf("got %d rows, want %d", got.NumRows(), tb.NumRows())
	}
}

func TestHeadClampsToLength(t *testing.T) {
	tb := fuzzedTable(t, 5)
	got := tb.Head(100)
	if got.NumRows() != 5 {
		t.Fatalf("got %d rows, want 5", got.NumRows())
	}
}

func TestFilterPreservesMatching(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6}
	keys := make([]string, len(values))
	tb := table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})
	even := tb.Filter(func(r table.RowView) bool {
		v, _ := r.Get("value")
		return v.(int64)%2 == 0
	})
	if even.NumRows() != 3 {
		t.Fatalf("got %d rows, want 3", even.NumRows())
	}
}

func TestSortIsStableAndOrdered(t *testing.T) {
	values := []int64{3, 1, 2, 1}
	keys := []string{"a", "b", "c", "d"}
	tb := table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})
	sorted := tb.Sort([]string{"value"}, []bool{false})
	rec := sorted.Record()
	col := rec.Column(0).(interface {
		Value(int) string
	})
	if got, want := col.Value(0), "b"; got != want {
		t.Errorf("first key: got %v, want %v (stability of ties)", got, want)
	}
	if got, want := col.Value(1), "d"; got != want {
		t.Errorf("second key: got %v, want %v (stability of ties)", got, want)
	}
}

func TestQuantilesRowCount(t *testing.T) {
	tb := fuzzedTable(t, 100)
	sorted := tb.Sort([]string{"value"}, []bool{false})
	q := sorted.Quantiles(4)
	if q.NumRows() != 3 {
		t.Fatalf("got %d boundary rows, want 3", q.NumRows())
	}
}

func TestPartitionByHashPreservesRows(t *testing.T) {
	tb := fuzzedTable(t, 200)
	parts := tb.PartitionByHash([]string{"key"}, 5)
	total := 0
	for _, p := range parts {
		total += p.NumRows()
	}
	if total != tb.NumRows() {
		t.Fatalf("got %d total rows across partitions, want %d", total, tb.NumRows())
	}
}

func TestPartitionByHashIsDeterministicPerKey(t *testing.T) {
	keys := []string{"a", "b", "a", "b", "a"}
	values := []int64{1, 2, 3, 4, 5}
	tb := table.FromColumns([]string{"key", "value"}, []interface{}{keys, values})
	parts := tb.PartitionByHash([]string{"key"}, 3)
	owner := make(map[string]int)
	for i, p := range parts {
		for r := 0; r < p.NumRows(); r++ {
			k, _ := table.RowViewFor(p, r).Get("key")
			ks := k.(string)
			if prev, ok := owner[ks]; ok && prev != i {
				t.Fatalf("key %q split across partitions %d and %d", ks, prev, i)
			}
			owner[ks] = i
		}
	}
}
