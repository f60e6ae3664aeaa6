// Package instruction implements the closed Instruction algebra:
// partition-to-partitions transformations, each with a runtime `Run`
// behavior and a compile-time `Propagate` metadata rule. The set of
// variants is closed -- new variants require a change to this
// package, not a caller implementing an interface -- so each variant
// is a concrete struct, and callers dispatch through the sealed
// Instruction interface's Run and Propagate methods.
package instruction

import (
	"strconv"

	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// Instruction is one step of a partition-level pipeline.
type Instruction interface {
	// Run performs the data transformation. Implementations panic on
	// an arity mismatch (an invariant violation, not an input error)
	// via the arity helpers in this file.
	Run(inputs []*table.Table) []*table.Table

	// Propagate computes any metadata about the output partition(s)
	// that can be derived ahead of time, without running Run.
	Propagate(inputs []partition.PartialPartitionMetadata) []partition.PartialPartitionMetadata

	// sealed marks this interface as implementable only by variants
	// declared in this package, keeping the algebra closed and the
	// closed-set property machine-checkable.
	sealed()
}

// ReduceInstruction is implemented by the N-ary reduce variants. The
// marker identifies a reduce boundary without a type switch over every
// variant.
type ReduceInstruction interface {
	Instruction
	isReduce()
}

// FanoutInstruction is implemented by the fan-out variants, each of
// which declares its static output count.
type FanoutInstruction interface {
	Instruction
	NumOutputs() int
}

func requireArity(inputs []*table.Table, n int, name string) {
	if len(inputs) != n {
		panic(instructionFault(name, inputs, n))
	}
}

func instructionFault(name string, inputs []*table.Table, want int) string {
	return "instruction: " + name + ": arity mismatch: got " +
		strconv.Itoa(len(inputs)) + " inputs, want " + strconv.Itoa(want)
}

func unknownMeta(n int) []partition.PartialPartitionMetadata {
	out := make([]partition.PartialPartitionMetadata, n)
	for i := range out {
		out[i] = partition.UnknownPartialMetadata()
	}
	return out
}
