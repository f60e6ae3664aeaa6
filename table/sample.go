package table

import "math/rand"

// Sample returns a random sub-table of at most n rows, without
// replacement, preserving relative input order. If n >= NumRows, the
// whole table is returned (order preserved, no shuffling), matching
// the original system's treatment of undersized partitions.
func (t *Table) Sample(n int) *Table {
	total := t.NumRows()
	if n >= total {
		return t.Head(total)
	}
	perm := rand.Perm(total)[:n]
	idx := append([]int(nil), perm...)
	// Preserve input order among sampled rows so downstream sort-key
	// evaluation sees a deterministic, order-stable subset.
	sortInts(idx)
	return t.Take(idx)
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Quantiles assumes the table is already sorted by the keys a caller
// cares about, and returns the k-1 boundary rows that split it into k
// roughly-equal partitions. This is the contract ReduceToQuantiles
// relies on: for a non-empty table its output has exactly k-1 rows
// (positions may repeat when the table has fewer than k rows); an
// empty table, or k <= 1, yields zero rows.
func (t *Table) Quantiles(k int) *Table {
	n := t.NumRows()
	if k <= 1 || n == 0 {
		return t.Take(nil)
	}
	idx := make([]int, 0, k-1)
	for i := 1; i < k; i++ {
		pos := i * n / k
		if pos >= n {
			pos = n - 1
		}
		idx = append(idx, pos)
	}
	return t.Take(idx)
}
