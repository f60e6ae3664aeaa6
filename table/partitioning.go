package table

import (
	"hash/fnv"
	"math/rand"

	"github.com/apache/arrow/go/v17/arrow"
)

// PartitionByHash splits the table into n partitions by hashing the
// named key columns. Rows with equal keys always land in the same
// partition.
func (t *Table) PartitionByHash(keys []string, n int) []*Table {
	cols := make([]arrow.Array, len(keys))
	for i, k := range keys {
		cols[i] = t.column(k)
	}
	buckets := make([][]int, n)
	for i := 0; i < t.NumRows(); i++ {
		h := fnv.New64a()
		h.Write([]byte(groupKey(cols, i)))
		b := int(h.Sum64() % uint64(n))
		buckets[b] = append(buckets[b], i)
	}
	out := make([]*Table, n)
	for i, idx := range buckets {
		out[i] = t.Take(idx)
	}
	return out
}

// PartitionByRandom splits the table into n partitions by assigning
// each row a uniformly random destination, seeded deterministically.
func (t *Table) PartitionByRandom(n int, seed int64) []*Table {
	r := rand.New(rand.NewSource(seed))
	buckets := make([][]int, n)
	for i := 0; i < t.NumRows(); i++ {
		p := r.Intn(n)
		buckets[p] = append(buckets[p], i)
	}
	out := make([]*Table, n)
	for i, idx := range buckets {
		out[i] = t.Take(idx)
	}
	return out
}

// PartitionByRange splits the table into len(boundaries)+1 partitions
// using the sorted boundary rows (as produced by Quantiles) on the
// named key columns, honoring a per-key descending flag.
func (t *Table) PartitionByRange(keys []string, boundaries *Table, descending []bool) []*Table {
	n := boundaries.NumRows() + 1
	cols := make([]arrow.Array, len(keys))
	boundCols := make([]arrow.Array, len(keys))
	for i, k := range keys {
		cols[i] = t.column(k)
		boundCols[i] = boundaries.column(k)
	}
	buckets := make([][]int, n)
	for i := 0; i < t.NumRows(); i++ {
		p := bucketFor(cols, i, boundCols, boundaries.NumRows(), descending)
		buckets[p] = append(buckets[p], i)
	}
	out := make([]*Table, n)
	for i, idx := range buckets {
		out[i] = t.Take(idx)
	}
	return out
}

// bucketFor finds the partition index for row i of cols against the
// sorted boundary rows: the count of boundaries the row compares
// greater than (or less than, if descending).
func bucketFor(cols []arrow.Array, row int, boundCols []arrow.Array, numBounds int, descending []bool) int {
	bucket := 0
	for b := 0; b < numBounds; b++ {
		greater := false
		for k, col := range cols {
			va, na := value(col, row)
			vb, nb := value(boundCols[k], b)
			cmp := compare(va, na, vb, nb)
			if descending[k] {
				cmp = -cmp
			}
			if cmp != 0 {
				greater = cmp > 0
				break
			}
		}
		if greater {
			bucket++
		} else {
			break
		}
	}
	return bucket
}
