package task

import (
	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// MultiOutputPartitionTask is a frozen task producing NumResults()
// output partitions, e.g. the output of a fan-out instruction.
type MultiOutputPartitionTask struct {
	base

	results  []MaterializedResult
	canceled bool
}

func (t *MultiOutputPartitionTask) ID() uint64 { return t.base.ID() }
func (t *MultiOutputPartitionTask) Inputs() []partition.T { return t.base.Inputs() }
func (t *MultiOutputPartitionTask) Pipeline() []instruction.Instruction { return t.base.Pipeline() }
func (t *MultiOutputPartitionTask) ResourceRequest() partition.ResourceRequest {
	return t.base.ResourceRequest()
}

// Done reports whether SetResult or Cancel has been called.
func (t *MultiOutputPartitionTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results != nil || t.canceled
}

// SetResult installs the task's materialized results. It panics with
// ErrArity if results's length does not equal NumResults(), and with
// ErrAlreadyMaterialized if the task is already done.
func (t *MultiOutputPartitionTask) SetResult(results []MaterializedResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.results != nil || t.canceled {
		panic(ErrAlreadyMaterialized)
	}
	if len(results) != t.numResults {
		panic(ErrArity)
	}
	t.results = append([]MaterializedResult(nil), results...)
}

// Cancel forwards to every installed result's Cancel if the task is
// already materialized, and otherwise marks it done without results.
// Idempotent: a second call is a no-op.
func (t *MultiOutputPartitionTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	t.canceled = true
	for _, r := range t.results {
		r.Cancel()
	}
}

func (t *MultiOutputPartitionTask) resultsOrPanic() []MaterializedResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.results == nil {
		panic("task: MultiOutputPartitionTask: results read before materialization")
	}
	return t.results
}

// Partitions returns all produced partitions, in output order.
func (t *MultiOutputPartitionTask) Partitions() []partition.T {
	results := t.resultsOrPanic()
	out := make([]partition.T, len(results))
	for i, r := range results {
		out[i] = r.Partition()
	}
	return out
}

// VPartition returns the i'th produced partition's materialized Table.
func (t *MultiOutputPartitionTask) VPartition(i int) *table.Table {
	return t.resultsOrPanic()[i].VPartition()
}

// PartitionMetadatas returns all produced partitions' concrete metadata.
func (t *MultiOutputPartitionTask) PartitionMetadatas() []partition.PartitionMetadata {
	results := t.resultsOrPanic()
	out := make([]partition.PartitionMetadata, len(results))
	for i, r := range results {
		out[i] = r.Metadata()
	}
	return out
}

// Result returns the i'th produced result directly, for callers that
// need the MaterializedResult capability (not just the raw partition).
func (t *MultiOutputPartitionTask) Result(i int) MaterializedResult {
	return t.resultsOrPanic()[i]
}
