// Package task implements the PartitionTask lifecycle: accumulating an
// instruction pipeline over one or more input partitions with an
// aggregated resource request, freezing it into single- or
// multi-output form, dispatching it, and recording its materialized
// result.
package task

import (
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// idCounter is the process-wide monotonic task-id source, the only
// shared mutable state in this package. An atomic integer needs no
// lock.
var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// MaterializedResult is the capability over a single produced
// partition, uniform regardless of whether execution was local or
// remote.
type MaterializedResult interface {
	Partition() partition.T
	VPartition() *table.Table
	Metadata() partition.PartitionMetadata
	Cancel()
}

// base is shared state every PartitionTask (single- or multi-output)
// carries: inputs, pipeline, resource request, and frozen-ness.
type base struct {
	mu sync.Mutex

	id         uint64
	inputs     []partition.T
	pipeline   []instruction.Instruction
	resources  partition.ResourceRequest
	numResults int
	frozen     bool
}

// ID returns the task's globally unique id. Within one process
// lifetime no two tasks share an id.
func (b *base) ID() uint64 { return b.id }

// Inputs returns the task's input partitions.
func (b *base) Inputs() []partition.T { return append([]partition.T(nil), b.inputs...) }

// Pipeline returns the task's frozen instruction pipeline.
func (b *base) Pipeline() []instruction.Instruction {
	return append([]instruction.Instruction(nil), b.pipeline...)
}

// ResourceRequest returns the task's aggregated resource request.
func (b *base) ResourceRequest() partition.ResourceRequest { return b.resources }

// NumResults returns the number of output partitions this task produces.
func (b *base) NumResults() int { return b.numResults }

// ErrArity is the value SetResult panics with when its list length does
// not match the task's declared output arity -- an invariant violation
// per spec §7, not an input error.
var ErrArity = errors.E(errors.Fatal, "task: set_result: result count does not match num_results")

// ErrAlreadyMaterialized is the value SetResult panics with when called
// on a task that is already done.
var ErrAlreadyMaterialized = errors.E(errors.Fatal, "task: set_result: task is already materialized")
