package task

import (
	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// SingleOutputPartitionTask is a frozen task producing exactly one
// output partition.
type SingleOutputPartitionTask struct {
	base

	result   MaterializedResult
	canceled bool
}

func (t *SingleOutputPartitionTask) ID() uint64 { return t.base.ID() }
func (t *SingleOutputPartitionTask) Inputs() []partition.T { return t.base.Inputs() }
func (t *SingleOutputPartitionTask) Pipeline() []instruction.Instruction { return t.base.Pipeline() }
func (t *SingleOutputPartitionTask) ResourceRequest() partition.ResourceRequest {
	return t.base.ResourceRequest()
}

// Done reports whether SetResult or Cancel has been called.
func (t *SingleOutputPartitionTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result != nil || t.canceled
}

// SetResult installs the task's single materialized result. It panics
// with ErrArity if results does not hold exactly one entry, and with
// ErrAlreadyMaterialized if the task is already done: a task is
// materialized at most once.
func (t *SingleOutputPartitionTask) SetResult(results []MaterializedResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result != nil || t.canceled {
		panic(ErrAlreadyMaterialized)
	}
	if len(results) != 1 {
		panic(ErrArity)
	}
	t.result = results[0]
}

// Cancel forwards to the installed result's Cancel if the task is
// already materialized, and otherwise marks it done without a result.
// Idempotent: a second call is a no-op.
func (t *SingleOutputPartitionTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	t.canceled = true
	if t.result != nil {
		t.result.Cancel()
	}
}

// Result returns the task's materialized result. It panics if the
// task is not yet done -- reading an unmaterialized task's result is
// a caller bug, not a recoverable condition.
func (t *SingleOutputPartitionTask) Result() MaterializedResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		panic("task: SingleOutputPartitionTask: result read before materialization")
	}
	return t.result
}

// Partition returns the single produced partition.
func (t *SingleOutputPartitionTask) Partition() partition.T {
	return t.Result().Partition()
}

// VPartition returns the single produced partition's materialized Table.
func (t *SingleOutputPartitionTask) VPartition() *table.Table {
	return t.Result().VPartition()
}

// PartitionMetadata returns the single produced partition's concrete metadata.
func (t *SingleOutputPartitionTask) PartitionMetadata() partition.PartitionMetadata {
	return t.Result().Metadata()
}
