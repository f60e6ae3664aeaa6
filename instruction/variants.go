package instruction

import (
	"strconv"

	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// --- Source / sink plan descriptors -----------------------------------
//
// These are leaf-level descriptors the optimizer's output embeds into
// ReadFile/WriteFile instructions. The full LogicalPlan tree (package
// plan) references these when lowering a scan/write node into an
// instruction pipeline; they do not need to know about the tree above
// them.

// FileScanPlan describes a file-backed partition source.
type FileScanPlan struct {
	// The file paths assigned to the partition being read are carried
	// by the filepaths partition input, not by this plan; the limit
	// and format live here since they're plan-level, not data-level.
	LimitRows *int
	Format    string
}

// FileWritePlan describes a file-backed partition sink.
type FileWritePlan struct {
	Path   string
	Format string
}

// CountSchema is the fixed single-column schema LocalCount produces.
var CountSchema = []string{"count"}

// --- Unary map ----------------------------------------------------------

// ReadFile reads a single partition from a file-scan plan. Its input
// is a one-row "filepaths" partition; its row-count metadata is
// sourced from a known file row count when available, clipped by the
// plan's limit.
type ReadFile struct {
	PartitionIndex int
	InnerFileIndex *int
	Plan           FileScanPlan
	FileRows       *int
	// Read is the actual file-reading function. It is a caller-supplied
	// hook because file-format parsing is outside this module's scope;
	// Run calls it with the filepaths partition.
	Read func(filepaths *table.Table, partitionIndex int, innerFileIndex *int, plan FileScanPlan) *table.Table
}

func (ReadFile) sealed() {}

func (r ReadFile) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "ReadFile")
	return []*table.Table{r.Read(inputs[0], r.PartitionIndex, r.InnerFileIndex, r.Plan)}
}

func (r ReadFile) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	var numRows *int
	if r.FileRows != nil {
		n := *r.FileRows
		if r.Plan.LimitRows != nil && *r.Plan.LimitRows < n {
			n = *r.Plan.LimitRows
		}
		numRows = &n
	}
	if numRows == nil {
		return []partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()}
	}
	return []partition.PartialPartitionMetadata{partition.KnownRows(uint64(*numRows))}
}

// WriteFile writes a single partition to a file-write plan, producing
// a one-row manifest partition.
type WriteFile struct {
	Plan  FileWritePlan
	Write func(input *table.Table, plan FileWritePlan) *table.Table
}

func (WriteFile) sealed() {}

func (w WriteFile) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "WriteFile")
	return []*table.Table{w.Write(inputs[0], w.Plan)}
}

func (w WriteFile) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return []partition.PartialPartitionMetadata{partition.KnownRows(1)}
}

// Filter keeps the rows for which predicate is true. Selectivity is
// unknown at compile time, so row-count metadata is unknown.
type Filter struct {
	Predicate table.Predicate
}

func (Filter) sealed() {}

func (f Filter) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "Filter")
	return []*table.Table{inputs[0].Filter(f.Predicate)}
}

func (f Filter) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(len(in))
}

// Project evaluates projection against the input, preserving row
// count (evaluating a projection cannot change it) but not size.
type Project struct {
	Projection table.Projection
}

func (Project) sealed() {}

func (p Project) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "Project")
	return []*table.Table{inputs[0].EvalExpressionList(p.Projection)}
}

func (p Project) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	out := make([]partition.PartialPartitionMetadata, len(in))
	for i, m := range in {
		out[i] = partition.PartialPartitionMetadata{NumRows: m.NumRows}
	}
	return out
}

// LocalCount produces a one-row table with a single "count" column
// holding the input's row count.
type LocalCount struct{}

func (LocalCount) sealed() {}

func (LocalCount) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "LocalCount")
	n := int64(inputs[0].NumRows())
	return []*table.Table{table.FromColumns(CountSchema, []interface{}{[]int64{n}})}
}

func (LocalCount) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	out := make([]partition.PartialPartitionMetadata, len(in))
	for i := range out {
		out[i] = partition.PartialPartitionMetadata{NumRows: u64p(1), SizeBytes: u64p(104)}
	}
	return out
}

func u64p(v uint64) *uint64 { return &v }

// LocalLimit truncates the input to at most K rows, conservatively:
// unlike Slice it never needs an exact end offset and is used for
// cheap, approximate truncation.
type LocalLimit struct {
	K int
}

func (LocalLimit) sealed() {}

func (l LocalLimit) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "LocalLimit")
	return []*table.Table{inputs[0].Head(l.K)}
}

func (l LocalLimit) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	out := make([]partition.PartialPartitionMetadata, len(in))
	for i, m := range in {
		if rows, ok := m.Rows(); ok {
			min := rows
			if uint64(l.K) < min {
				min = uint64(l.K)
			}
			out[i] = partition.KnownRows(min)
		} else {
			out[i] = partition.UnknownPartialMetadata()
		}
	}
	return out
}

// Slice windows the input to rows [Start, End), clamping End to the
// actual row count. Used for exact windowing, where callers may pass
// an End beyond the partition's length.
type Slice struct {
	Start, End int
}

func (Slice) sealed() {}

func (s Slice) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "Slice")
	if s.Start < 0 {
		panic("instruction: Slice: start must be non-negative, got " + strconv.Itoa(s.Start))
	}
	return []*table.Table{inputs[0].Slice(s.Start, s.End)}
}

func (s Slice) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	requireMetaArity(in, 1, "Slice")
	if s.Start < 0 {
		panic("instruction: Slice: start must be non-negative, got " + strconv.Itoa(s.Start))
	}
	m := in[0]
	rows, ok := m.Rows()
	if !ok {
		return []partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()}
	}
	end := uint64(s.End)
	if rows < end {
		end = rows
	}
	var n uint64
	if end > uint64(s.Start) {
		n = end - uint64(s.Start)
	}
	return []partition.PartialPartitionMetadata{partition.KnownRows(n)}
}

func requireMetaArity(in []partition.PartialPartitionMetadata, n int, name string) {
	if len(in) != n {
		panic("instruction: " + name + ": metadata arity mismatch: got " + strconv.Itoa(len(in)) + ", want " + strconv.Itoa(n))
	}
}

// PartitionOp is a user-supplied whole-partition transformation, the
// opaque "op" MapPartition consumes. Arbitrary row-count change makes
// its metadata unknown.
type PartitionOp func(input *table.Table) *table.Table

// MapPartition runs an arbitrary whole-partition transformation.
type MapPartition struct {
	Op PartitionOp
}

func (MapPartition) sealed() {}

func (m MapPartition) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "MapPartition")
	return []*table.Table{m.Op(inputs[0])}
}

func (m MapPartition) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(len(in))
}

// Sample draws at most N rows, evaluates sortBy over them, and drops
// any row with a null in any sort key so downstream quantile
// computation only sees comparable keys. Because of that selectivity,
// output row count is unknown even though the sample target N is
// known.
type Sample struct {
	SortBy table.Projection
	N      int
}

func (Sample) sealed() {}

func (s Sample) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "Sample")
	sampled := inputs[0].Sample(s.N)
	evaluated := sampled.EvalExpressionList(s.SortBy)
	names := s.SortBy.ColumnNames()
	filtered := evaluated.Filter(func(row table.RowView) bool {
		for _, name := range names {
			if _, isNull := row.Get(name); isNull {
				return false
			}
		}
		return true
	})
	return []*table.Table{filtered}
}

func (s Sample) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(len(in))
}

// Aggregate computes exprs, optionally grouped by groupBy. Row count
// depends on group cardinality and so is unknown ahead of time.
type Aggregate struct {
	Exprs   []table.AggExpr
	GroupBy []string
}

func (Aggregate) sealed() {}

func (a Aggregate) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 1, "Aggregate")
	return []*table.Table{inputs[0].Agg(a.Exprs, a.GroupBy)}
}

func (a Aggregate) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return unknownMeta(len(in))
}

// JoinSpec holds a join's key lists, output projection, and how-variant.
type JoinSpec struct {
	LeftOn, RightOn  []string
	OutputProjection table.Projection
	How              table.JoinHow
}

// Join joins two input partitions (left, right).
type Join struct {
	Plan JoinSpec
}

func (Join) sealed() {}

func (j Join) Run(inputs []*table.Table) []*table.Table {
	requireArity(inputs, 2, "Join")
	left, right := inputs[0], inputs[1]
	return []*table.Table{left.Join(right, j.Plan.LeftOn, j.Plan.RightOn, j.Plan.OutputProjection, j.Plan.How)}
}

func (j Join) Propagate(in []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata {
	return []partition.PartialPartitionMetadata{partition.UnknownPartialMetadata()}
}
