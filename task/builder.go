package task

import (
	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
)

// Builder is a mutable accumulator for a PartitionTask's pipeline. It
// holds the inputs, a mutable instruction pipeline, a rolling resource
// request, and a rolling partial-metadata vector (one entry per
// current logical output). It does not validate the instruction
// arity chain as instructions are added; that is deferred to Run,
// where a mismatch is a logic bug rather than an input error (spec
// §4.2).
type Builder struct {
	inputs       []partition.T
	pipeline     []instruction.Instruction
	resources    partition.ResourceRequest
	partialMetas []partition.PartialPartitionMetadata
}

// NewBuilder creates a Builder over the given inputs. If
// partialMetas is nil, it defaults to one unknown-rows,
// unknown-bytes entry per input.
func NewBuilder(inputs []partition.T, partialMetas []partition.PartialPartitionMetadata, resources partition.ResourceRequest) *Builder {
	if partialMetas == nil {
		partialMetas = make([]partition.PartialPartitionMetadata, len(inputs))
		for i := range partialMetas {
			partialMetas[i] = partition.UnknownPartialMetadata()
		}
	}
	return &Builder{
		inputs:       inputs,
		partialMetas: partialMetas,
		resources:    resources,
	}
}

// PartialMetadatas returns the builder's current output metadata
// vector.
func (b *Builder) PartialMetadatas() []partition.PartialPartitionMetadata {
	return append([]partition.PartialPartitionMetadata(nil), b.partialMetas...)
}

// AddInstruction appends inst to the pipeline, replacing the partial
// metadata vector with inst.Propagate(current) and the resource
// request with the element-wise max of the current request and rr.
func (b *Builder) AddInstruction(inst instruction.Instruction, rr partition.ResourceRequest) *Builder {
	b.pipeline = append(b.pipeline, inst)
	b.partialMetas = inst.Propagate(b.partialMetas)
	b.resources = partition.MaxOf(b.resources, rr)
	return b
}

// FinalizeSingleOutput freezes the builder into a SingleOutputPartitionTask
// with num_results = 1, applying the single-output CPU/memory
// defaulting rule.
func (b *Builder) FinalizeSingleOutput() *SingleOutputPartitionTask {
	t := &SingleOutputPartitionTask{base: base{
		id:         nextID(),
		inputs:     append([]partition.T(nil), b.inputs...),
		pipeline:   append([]instruction.Instruction(nil), b.pipeline...),
		resources:  partition.FinalizeSingleOutput(b.resources),
		numResults: 1,
		frozen:     true,
	}}
	return t
}

// FinalizeMultiOutput freezes the builder into a MultiOutputPartitionTask
// with num_results = k, applying the multi-output defaulting rule
// (which, unlike the single-output rule, preserves memory_bytes == 0
// verbatim; see DESIGN.md).
func (b *Builder) FinalizeMultiOutput(k int) *MultiOutputPartitionTask {
	t := &MultiOutputPartitionTask{base: base{
		id:         nextID(),
		inputs:     append([]partition.T(nil), b.inputs...),
		pipeline:   append([]instruction.Instruction(nil), b.pipeline...),
		resources:  partition.FinalizeMultiOutput(b.resources),
		numResults: k,
		frozen:     true,
	}}
	return t
}
