package instruction

import (
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// ReduceMerge concatenates N input partitions into one.
// ReduceMerge([t]) == t for a single-element input.
type ReduceMerge struct{}

func (ReduceMerge) sealed()   {}
func (ReduceMerge) isReduce() {}

func (ReduceMerge) Run(inputs []*table.Table) []*table.Table {
	return []*table.Table{table.Concat(inputs)}
}

func (ReduceMerge) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return []partition.PartialPartitionMetadata{sumMeta(in)}
}

// ReduceMergeAndSort concatenates N input partitions then sorts the
// result by sortBy/descending.
type ReduceMergeAndSort struct {
	SortBy     []string
	Descending []bool
}

func (ReduceMergeAndSort) sealed()   {}
func (ReduceMergeAndSort) isReduce() {}

func (r ReduceMergeAndSort) Run(inputs []*table.Table) []*table.Table {
	merged := table.Concat(inputs)
	return []*table.Table{merged.Sort(r.SortBy, r.Descending)}
}

func (r ReduceMergeAndSort) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return []partition.PartialPartitionMetadata{sumMeta(in)}
}

func sumMeta(in []partition.PartialPartitionMetadata) partition.PartialPartitionMetadata {
	var rows, size uint64
	rowsKnown, sizeKnown := true, true
	for _, m := range in {
		if r, ok := m.Rows(); ok {
			rows += r
		} else {
			rowsKnown = false
		}
		if s, ok := m.Size(); ok {
			size += s
		} else {
			sizeKnown = false
		}
	}
	out := partition.PartialPartitionMetadata{}
	if rowsKnown {
		out.NumRows = &rows
	}
	if sizeKnown {
		out.SizeBytes = &size
	}
	return out
}

// ReduceToQuantiles concatenates N input partitions, sorts by sortBy's
// bare column references (the sort expressions are assumed already
// evaluated by an upstream Sample, so no double evaluation happens),
// and reduces to K-1 quantile boundary rows.
type ReduceToQuantiles struct {
	K          int
	SortBy     table.Projection
	Descending []bool
}

func (ReduceToQuantiles) sealed()   {}
func (ReduceToQuantiles) isReduce() {}

func (r ReduceToQuantiles) Run(inputs []*table.Table) []*table.Table {
	merged := table.Concat(inputs)
	sorted := merged.Sort(r.SortBy.ToColumnRefs().ColumnNames(), r.Descending)
	return []*table.Table{sorted.Quantiles(r.K)}
}

// Propagate reports the loose estimate num_rows = K, matching the
// original system's run_partial_metadata. This is deliberately not the
// k-1 boundary-row count Run actually produces: the metadata rule and
// the runtime behavior are different concerns.
func (r ReduceToQuantiles) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return []partition.PartialPartitionMetadata{partition.KnownRows(uint64(r.K))}
}

// FanoutRandom splits the one input partition into NumOutputs
// partitions by uniformly random assignment, seeded deterministically.
type FanoutRandom struct {
	NumOutputsField int
	Seed            int64
}

func (FanoutRandom) sealed()           {}
func (f FanoutRandom) NumOutputs() int { return f.NumOutputsField }

func (f FanoutRandom) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "FanoutRandom")
	return inputs[0].PartitionByRandom(f.NumOutputsField, f.Seed)
}

func (f FanoutRandom) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(f.NumOutputsField)
}

// FanoutHash splits the one input partition into NumOutputs partitions
// by hashing the partitionBy key columns.
type FanoutHash struct {
	NumOutputsField int
	PartitionBy     []string
}

func (FanoutHash) sealed()           {}
func (f FanoutHash) NumOutputs() int { return f.NumOutputsField }

func (f FanoutHash) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "FanoutHash")
	return inputs[0].PartitionByHash(f.PartitionBy, f.NumOutputsField)
}

func (f FanoutHash) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(f.NumOutputsField)
}

// FanoutRange is a binary fan-out: its first input is a boundaries
// partition (k-1 rows), its second the data to be range-partitioned.
// If NumOutputs is 1 there is nothing to partition, so it returns the
// input unchanged -- straight from the original system's
// _fanout_range, which special-cases this to avoid a degenerate
// boundary lookup.
type FanoutRange struct {
	NumOutputsField int
	SortBy          []string
	Descending      []bool
}

func (FanoutRange) sealed()           {}
func (f FanoutRange) NumOutputs() int { return f.NumOutputsField }

func (f FanoutRange) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 2, "FanoutRange")
	boundaries, input := inputs[0], inputs[1]
	if f.NumOutputsField == 1 {
		return []*table.Table{input}
	}
	return input.PartitionByRange(f.SortBy, boundaries, f.Descending)
}

func (f FanoutRange) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(f.NumOutputsField)
}
