package schedule

import (
	"fmt"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/plan"
	"github.com/gridtable/gridtable/table"
	"github.com/gridtable/gridtable/task"
)

// compiler turns a plan.Node tree into stages, memoizing per node so a
// node referenced from two places (not expressible in our plan
// algebra today, but cheap to guard against) is compiled once.
type compiler struct {
	memo map[plan.Node][]*stage
}

// Compile lowers an optimized plan tree into its ordered list of
// output stages, one per partition of the tree's root.
func Compile(root plan.Node) []*stage {
	c := &compiler{memo: map[plan.Node][]*stage{}}
	return c.node(root)
}

func (c *compiler) node(n plan.Node) []*stage {
	if s, ok := c.memo[n]; ok {
		return s
	}
	var out []*stage
	switch v := n.(type) {
	case *plan.Read:
		out = c.compileRead(v)
	case *plan.Project:
		out = c.compileProject(v)
	case *plan.Filter:
		out = c.compileFilter(v)
	case *plan.Limit:
		out = c.compileLimit(v)
	case *plan.Aggregate:
		out = c.compileAggregate(v)
	case *plan.Sort:
		out = c.compileSort(v)
	case *plan.Repartition:
		out = c.compileRepartition(v)
	case *plan.Join:
		out = c.compileJoin(v)
	case *plan.Write:
		out = c.compileWrite(v)
	default:
		panic(fmt.Sprintf("schedule: unhandled plan node %T", n))
	}
	c.memo[n] = out
	return out
}

func (c *compiler) compileRead(r *plan.Read) []*stage {
	out := make([]*stage, r.NumPartitions)
	for i := 0; i < r.NumPartitions; i++ {
		i := i
		filepaths := sourceStage(fmt.Sprintf("read-input-%d", i), func() task.MaterializedResult {
			return task.NewLocalResult(r.FilePaths(i))
		})
		var fileRows *int
		if i < len(r.FileRowsByPartition) {
			fileRows = r.FileRowsByPartition[i]
		}
		read := instruction.ReadFile{
			PartitionIndex: i,
			Plan:           r.Plan,
			FileRows:       fileRows,
			Read:           r.ReadFn,
		}
		out[i] = newStage(
			fmt.Sprintf("read-%d", i),
			[]instruction.Instruction{read},
			single(out0(filepaths)),
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

func (c *compiler) compileProject(p *plan.Project) []*stage {
	children := c.node(p.Input)
	out := make([]*stage, len(children))
	for i, ch := range children {
		out[i] = newStage(
			fmt.Sprintf("project-%d", i),
			[]instruction.Instruction{instruction.Project{Projection: p.Projection}},
			single(out0(ch)),
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

func (c *compiler) compileFilter(f *plan.Filter) []*stage {
	children := c.node(f.Input)
	out := make([]*stage, len(children))
	for i, ch := range children {
		out[i] = newStage(
			fmt.Sprintf("filter-%d", i),
			[]instruction.Instruction{instruction.Filter{Predicate: f.Predicate}},
			single(out0(ch)),
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

// compileLimit applies a per-partition LocalLimit to cut down what
// each partition carries forward, then reduces everything to one
// partition and slices it to the exact K -- a per-partition limit
// alone would only bound each partition, not the total.
func (c *compiler) compileLimit(l *plan.Limit) []*stage {
	children := c.node(l.Input)
	locals := make([]*stage, len(children))
	for i, ch := range children {
		locals[i] = newStage(
			fmt.Sprintf("local-limit-%d", i),
			[]instruction.Instruction{instruction.LocalLimit{K: l.K}},
			single(out0(ch)),
			1,
			partition.ResourceRequest{},
		)
	}
	deps := make([]depRef, len(locals))
	for i, s := range locals {
		deps[i] = out0(s)
	}
	merged := newStage("limit-merge", []instruction.Instruction{instruction.ReduceMerge{}}, deps, 1, partition.ResourceRequest{})
	sliced := newStage(
		"limit-slice",
		[]instruction.Instruction{instruction.Slice{Start: 0, End: l.K}},
		single(out0(merged)),
		1,
		partition.ResourceRequest{},
	)
	return []*stage{sliced}
}

// compileAggregate merges all input partitions into one before
// aggregating: the aggregation functions this module supports (in
// particular Mean) are not all associatively mergeable across partial
// per-partition results, so a single-pass aggregate over the full
// merged data keeps the implementation correct rather than fast.
func (c *compiler) compileAggregate(a *plan.Aggregate) []*stage {
	children := c.node(a.Input)
	deps := make([]depRef, len(children))
	for i, ch := range children {
		deps[i] = out0(ch)
	}
	merged := newStage("aggregate-merge", []instruction.Instruction{instruction.ReduceMerge{}}, deps, 1, partition.ResourceRequest{})
	agg := newStage(
		"aggregate",
		[]instruction.Instruction{instruction.Aggregate{Exprs: a.Exprs, GroupBy: a.GroupBy}},
		single(out0(merged)),
		1,
		partition.ResourceRequest{},
	)
	return []*stage{agg}
}

// compileSort implements the sample / reduce-to-quantiles /
// fanout-range / merge-and-sort protocol: every partition
// is sampled, the samples are reduced to one global set of k-1
// boundary rows, every partition is then range-partitioned against
// those (broadcast) boundaries into k buckets, and each bucket's
// pieces across all input partitions are merged and sorted.
func (c *compiler) compileSort(s *plan.Sort) []*stage {
	children := c.node(s.Input)
	sortByProj := make(table.Projection, len(s.SortBy))
	for i, name := range s.SortBy {
		sortByProj[i] = table.Col(name)
	}

	samples := make([]*stage, len(children))
	for i, ch := range children {
		samples[i] = newStage(
			fmt.Sprintf("sample-%d", i),
			[]instruction.Instruction{instruction.Sample{SortBy: sortByProj, N: s.SampleSize}},
			single(out0(ch)),
			1,
			partition.ResourceRequest{},
		)
	}
	sampleDeps := make([]depRef, len(samples))
	for i, sm := range samples {
		sampleDeps[i] = out0(sm)
	}
	boundaries := newStage(
		"reduce-to-quantiles",
		[]instruction.Instruction{instruction.ReduceToQuantiles{K: s.NumQuantiles, SortBy: sortByProj, Descending: s.Descending}},
		sampleDeps,
		1,
		partition.ResourceRequest{},
	)

	k := s.NumQuantiles
	fanouts := make([]*stage, len(children))
	for i, ch := range children {
		fanouts[i] = newStage(
			fmt.Sprintf("fanout-range-%d", i),
			[]instruction.Instruction{instruction.FanoutRange{NumOutputsField: k, SortBy: s.SortBy, Descending: s.Descending}},
			[]depRef{out0(boundaries), out0(ch)},
			k,
			partition.ResourceRequest{},
		)
	}

	out := make([]*stage, k)
	for key := 0; key < k; key++ {
		deps := make([]depRef, len(fanouts))
		for i, f := range fanouts {
			deps[i] = depRef{stage: f, output: key}
		}
		out[key] = newStage(
			fmt.Sprintf("merge-and-sort-%d", key),
			[]instruction.Instruction{instruction.ReduceMergeAndSort{SortBy: s.SortBy, Descending: s.Descending}},
			deps,
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

// compileRepartition fans every input partition out into NumOutputs
// buckets, then reduces each bucket's pieces (one per input partition)
// into a single output partition -- the fan-out/reduce shuffle
// boundary every shuffling operator lowers to.
func (c *compiler) compileRepartition(r *plan.Repartition) []*stage {
	children := c.node(r.Input)
	fanouts := make([]*stage, len(children))
	for i, ch := range children {
		var inst instruction.Instruction
		if len(r.PartitionBy) > 0 {
			inst = instruction.FanoutHash{NumOutputsField: r.NumOutputs, PartitionBy: r.PartitionBy}
		} else {
			inst = instruction.FanoutRandom{NumOutputsField: r.NumOutputs, Seed: r.Seed}
		}
		fanouts[i] = newStage(
			fmt.Sprintf("fanout-%d", i),
			[]instruction.Instruction{inst},
			single(out0(ch)),
			r.NumOutputs,
			partition.ResourceRequest{},
		)
	}

	out := make([]*stage, r.NumOutputs)
	for key := 0; key < r.NumOutputs; key++ {
		deps := make([]depRef, len(fanouts))
		for i, f := range fanouts {
			deps[i] = depRef{stage: f, output: key}
		}
		out[key] = newStage(
			fmt.Sprintf("reduce-%d", key),
			[]instruction.Instruction{instruction.ReduceMerge{}},
			deps,
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

// compileJoin pairs up left and right partitions index for index. If
// one side has a single partition, it is broadcast against every
// partition of the other; otherwise the two sides must have equal
// partition counts.
func (c *compiler) compileJoin(j *plan.Join) []*stage {
	left := c.node(j.Left)
	right := c.node(j.Right)

	n := len(left)
	switch {
	case len(right) == 1:
		// broadcast right
	case len(left) == 1:
		n = len(right)
	case len(left) == len(right):
		n = len(left)
	default:
		panic(fmt.Sprintf("schedule: join: partition count mismatch (left=%d, right=%d) requires an explicit repartition", len(left), len(right)))
	}

	out := make([]*stage, n)
	for i := 0; i < n; i++ {
		l := left[i%len(left)]
		r := right[i%len(right)]
		inst := instruction.Join{Plan: instruction.JoinSpec{
			LeftOn:           j.LeftOn,
			RightOn:          j.RightOn,
			OutputProjection: j.OutputProjection,
			How:              j.How,
		}}
		out[i] = newStage(
			fmt.Sprintf("join-%d", i),
			[]instruction.Instruction{inst},
			[]depRef{out0(l), out0(r)},
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}

func (c *compiler) compileWrite(w *plan.Write) []*stage {
	children := c.node(w.Input)
	out := make([]*stage, len(children))
	for i, ch := range children {
		inst := instruction.WriteFile{Plan: w.Plan, Write: w.WriteFn}
		out[i] = newStage(
			fmt.Sprintf("write-%d", i),
			[]instruction.Instruction{inst},
			single(out0(ch)),
			1,
			partition.ResourceRequest{},
		)
	}
	return out
}
