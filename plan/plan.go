// Package plan implements the LogicalPlan node algebra that the
// schedule package lowers into instruction pipelines, and a small
// optimizer pass over it. The plan tree and its optimizer are the
// "enclosing system" dependency the core instruction/task packages
// treat as opaque; this package is a concrete, minimal implementation
// of that dependency so the whole pipeline is exercisable end to end.
package plan

import (
	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/table"
)

// Node is a logical plan node. Like instruction.Instruction, the set
// of node kinds is closed; sealed prevents external packages from
// growing it.
type Node interface {
	Children() []Node
	sealed()
}

// NumPartitions reports how many partitions a node's output is split
// into. For Project, Filter and Write this equals their child's count;
// Read, Repartition, Sort, Limit, Aggregate and Join set their own.
func NumPartitions(n Node) int {
	switch v := n.(type) {
	case *Read:
		return v.NumPartitions
	case *Repartition:
		return v.NumOutputs
	case *Sort:
		return v.NumQuantiles
	case *Limit, *Aggregate:
		return 1
	case *Join:
		// A single-partition side is broadcast against the other.
		if l := NumPartitions(v.Left); l != 1 {
			return l
		}
		return NumPartitions(v.Right)
	default:
		children := n.Children()
		if len(children) == 0 {
			return 1
		}
		return NumPartitions(children[0])
	}
}

// Read is a leaf node reading num_partitions file-backed partitions.
type Read struct {
	NumPartitions int
	Plan          instruction.FileScanPlan
	FileRowsByPartition []*int
	ReadFn        func(filepaths *table.Table, partitionIndex int, innerFileIndex *int, scan instruction.FileScanPlan) *table.Table
	FilePaths     func(partitionIndex int) *table.Table
}

func (*Read) sealed()          {}
func (*Read) Children() []Node { return nil }

// Project evaluates a projection over its child's output.
type Project struct {
	Input      Node
	Projection table.Projection
}

func (*Project) sealed()          {}
func (p *Project) Children() []Node { return []Node{p.Input} }

// Filter keeps rows matching a predicate.
type Filter struct {
	Input     Node
	Predicate table.Predicate
}

func (*Filter) sealed()          {}
func (f *Filter) Children() []Node { return []Node{f.Input} }

// Limit caps the total row count across all of its child's partitions
// to K, applying a conservative per-partition LocalLimit, then merging
// into a single partition and slicing it to K rows.
type Limit struct {
	Input Node
	K     int
}

func (*Limit) sealed()          {}
func (l *Limit) Children() []Node { return []Node{l.Input} }

// Aggregate computes exprs per group over a single reduced partition.
type Aggregate struct {
	Input   Node
	Exprs   []table.AggExpr
	GroupBy []string
}

func (*Aggregate) sealed()          {}
func (a *Aggregate) Children() []Node { return []Node{a.Input} }

// Sort range-partitions and sorts its child's output, per the sample
// / reduce-to-quantiles / fanout-range / merge-and-sort protocol in
// schedule.
type Sort struct {
	Input         Node
	SortBy        []string
	Descending    []bool
	SampleSize    int
	NumQuantiles  int
}

func (*Sort) sealed()          {}
func (s *Sort) Children() []Node { return []Node{s.Input} }

// Repartition fans its child's output out into NumOutputs partitions,
// by hash of PartitionBy (PartitionBy non-empty) or uniformly at
// random otherwise.
type Repartition struct {
	Input       Node
	NumOutputs  int
	PartitionBy []string
	Seed        int64
}

func (*Repartition) sealed()          {}
func (r *Repartition) Children() []Node { return []Node{r.Input} }

// Join hash-joins left and right on the given key columns.
type Join struct {
	Left, Right      Node
	LeftOn, RightOn  []string
	OutputProjection table.Projection
	How              table.JoinHow
}

func (*Join) sealed()          {}
func (j *Join) Children() []Node { return []Node{j.Left, j.Right} }

// Write writes its child's output partitions to a sink plan.
type Write struct {
	Input  Node
	Plan   instruction.FileWritePlan
	WriteFn func(input *table.Table, write instruction.FileWritePlan) *table.Table
}

func (*Write) sealed()          {}
func (w *Write) Children() []Node { return []Node{w.Input} }
