// Package schedule turns an optimized plan.Node tree into the dynamic
// schedule described by the core: a dependency graph of Constructions
// that a runner iterates, dispatching each Construction's pipeline and
// reporting its result back before dependents become runnable.
//
// Unlike the core instruction/task packages, this package is plan-
// aware: it is the "enclosing system" piece that knows how a
// Repartition fans out and reduces back, how a Sort lowers to the
// sample/quantile/range-partition protocol, and how a Join's two
// input partition counts are reconciled.
package schedule

import (
	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/task"
)

// depRef points at one output of a producer stage.
type depRef struct {
	stage  *stage
	output int
}

// stage is one node of the compiled dependency graph: a not-yet-run
// instruction pipeline over a list of dependency outputs. A stage
// with an empty pipeline is a source: its single result is supplied
// directly (e.g. a file-paths partition) rather than computed by
// running instructions.
type stage struct {
	label      string
	pipeline   []instruction.Instruction
	deps       []depRef
	numOutputs int
	resources  partition.ResourceRequest

	source func() task.MaterializedResult // set only for source stages

	results []task.MaterializedResult
	done    bool
	queued  bool // true once placed on the todo queue, to guard against re-enqueuing
}

func newStage(label string, pipeline []instruction.Instruction, deps []depRef, numOutputs int, resources partition.ResourceRequest) *stage {
	return &stage{
		label:      label,
		pipeline:   pipeline,
		deps:       deps,
		numOutputs: numOutputs,
		resources:  resources,
	}
}

func sourceStage(label string, produce func() task.MaterializedResult) *stage {
	return &stage{label: label, numOutputs: 1, source: produce}
}

func single(d depRef) []depRef { return []depRef{d} }

func out0(s *stage) depRef { return depRef{stage: s, output: 0} }
