package task_test

import (
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
	"github.com/gridtable/gridtable/task"
)

func fuzzedTable(n int) *table.Table {
	fz := fuzz.New().NilChance(0).NumElements(n, n)
	var values []int64
	fz.Fuzz(&values)
	return table.FromColumns([]string{"value"}, []interface{}{values})
}

// TestSingleOutputLimitPropagatesResources exercises scenario S1's
// limit propagation: a task with a LocalLimit instruction has
// builder-side metadata reflecting the limit, and once finalized it
// carries the 2 CPUs its instruction requested (an explicit request
// takes the place of the 1.0 default).
func TestSingleOutputLimitPropagatesResources(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, []partition.PartialPartitionMetadata{partition.KnownRows(100)}, partition.ResourceRequest{})
	b.AddInstruction(instruction.LocalLimit{K: 10}, partition.CPUs(2))

	got := b.PartialMetadatas()
	if rows, ok := got[0].Rows(); !ok || rows != 10 {
		t.Fatalf("builder metadata: got %v (ok=%v), want 10", rows, ok)
	}

	tk := b.FinalizeSingleOutput()
	rr := tk.ResourceRequest()
	if rr.NumCPUs == nil || *rr.NumCPUs != 2 {
		t.Fatalf("resource request: got %v, want 2 CPUs", rr.NumCPUs)
	}
	if tk.NumResults() != 1 {
		t.Fatalf("NumResults: got %d, want 1", tk.NumResults())
	}
}

// TestSingleOutputZeroMemoryCoercedToAbsent locks in the Open Question
// decision: finalizing a single-output task with an explicit
// memory_bytes of 0 coerces it to absent.
func TestSingleOutputZeroMemoryCoercedToAbsent(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.Memory(0))
	tk := b.FinalizeSingleOutput()
	if tk.ResourceRequest().MemoryBytes != nil {
		t.Fatalf("single-output memory_bytes should be coerced to absent, got %v", *tk.ResourceRequest().MemoryBytes)
	}
}

// TestMultiOutputZeroMemoryPreserved locks in the matching asymmetric
// half: a multi-output task preserves an explicit zero.
func TestMultiOutputZeroMemoryPreserved(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.Memory(0))
	tk := b.FinalizeMultiOutput(3)
	if tk.ResourceRequest().MemoryBytes == nil || *tk.ResourceRequest().MemoryBytes != 0 {
		t.Fatalf("multi-output memory_bytes should be preserved as 0, got %v", tk.ResourceRequest().MemoryBytes)
	}
}

// TestResourceRequestAggregatesByMax exercises scenario S6: chaining
// instructions with differing resource requests aggregates via
// element-wise max, not sum or last-write.
func TestResourceRequestAggregatesByMax(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	b.AddInstruction(instruction.Filter{}, partition.CPUs(1))
	b.AddInstruction(instruction.LocalLimit{K: 5}, partition.CPUs(4))
	b.AddInstruction(instruction.Project{}, partition.CPUs(2))

	tk := b.FinalizeSingleOutput()
	if got := *tk.ResourceRequest().NumCPUs; got != 4 {
		t.Fatalf("aggregated CPUs: got %v, want 4", got)
	}
}

// TestResourceRequestS6GPUAndMemoryDefaultCPU exercises scenario S6
// precisely: two instructions contributing disjoint fields (GPUs,
// memory) aggregate without clobbering each other, and the untouched
// CPU field still gets its 1.0 default on finalize.
func TestResourceRequestS6GPUAndMemoryDefaultCPU(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.NewResourceRequest(nil, nil, nil))
	b.AddInstruction(instruction.Filter{}, partition.GPUs(1.0))
	b.AddInstruction(instruction.Project{}, partition.Memory(2_000_000_000))

	tk := b.FinalizeSingleOutput()
	rr := tk.ResourceRequest()
	if rr.NumCPUs == nil || *rr.NumCPUs != 1.0 {
		t.Fatalf("NumCPUs: got %v, want defaulted 1.0", rr.NumCPUs)
	}
	if rr.NumGPUs == nil || *rr.NumGPUs != 1.0 {
		t.Fatalf("NumGPUs: got %v, want 1.0", rr.NumGPUs)
	}
	if rr.MemoryBytes == nil || *rr.MemoryBytes != 2_000_000_000 {
		t.Fatalf("MemoryBytes: got %v, want 2e9", rr.MemoryBytes)
	}
}

// TestSingleOutputSetResultArityAndMaterializeOnce covers invariant 4
// (materialized at most once) and the arity check on SetResult.
func TestSingleOutputSetResultArityAndMaterializeOnce(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	tk := b.FinalizeSingleOutput()

	if tk.Done() {
		t.Fatalf("freshly-frozen task should not be done")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("SetResult with wrong arity should panic")
			}
		}()
		tk.SetResult([]task.MaterializedResult{
			task.NewLocalResult(fuzzedTable(3)),
			task.NewLocalResult(fuzzedTable(3)),
		})
	}()

	tk.SetResult([]task.MaterializedResult{task.NewLocalResult(fuzzedTable(3))})
	if !tk.Done() {
		t.Fatalf("task should be done after SetResult")
	}
	if tk.PartitionMetadata().NumRows != 3 {
		t.Fatalf("materialized metadata: got %d rows, want 3", tk.PartitionMetadata().NumRows)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("second SetResult should panic with ErrAlreadyMaterialized")
			}
		}()
		tk.SetResult([]task.MaterializedResult{task.NewLocalResult(fuzzedTable(3))})
	}()
}

// TestMultiOutputSetResultArity covers scenario S5: a fan-out task's
// SetResult must match NumResults() exactly.
func TestMultiOutputSetResultArity(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	tk := b.FinalizeMultiOutput(3)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("SetResult with wrong arity should panic")
			}
		}()
		tk.SetResult([]task.MaterializedResult{task.NewLocalResult(fuzzedTable(1))})
	}()

	tk.SetResult([]task.MaterializedResult{
		task.NewLocalResult(fuzzedTable(1)),
		task.NewLocalResult(fuzzedTable(2)),
		task.NewLocalResult(fuzzedTable(3)),
	})
	metas := tk.PartitionMetadatas()
	if len(metas) != 3 || metas[0].NumRows != 1 || metas[2].NumRows != 3 {
		t.Fatalf("unexpected metadatas: %+v", metas)
	}
}

// TestSingleOutputCancelForwardsToInstalledResult covers the
// cancelled-state contract: once a result is installed, Cancel
// forwards to it instead of silently returning.
func TestSingleOutputCancelForwardsToInstalledResult(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	tk := b.FinalizeSingleOutput()

	tb := fuzzedTable(3)
	tk.SetResult([]task.MaterializedResult{task.NewLocalResult(tb)})
	if got := tk.VPartition(); got != tb {
		t.Fatalf("VPartition: got %v, want the installed table", got)
	}

	tk.Cancel()
	tk.Cancel() // idempotent: must not double-release the installed result
}

// TestMultiOutputCancelForwardsToInstalledResults mirrors the
// single-output case across every installed result.
func TestMultiOutputCancelForwardsToInstalledResults(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	tk := b.FinalizeMultiOutput(2)

	tk.SetResult([]task.MaterializedResult{
		task.NewLocalResult(fuzzedTable(1)),
		task.NewLocalResult(fuzzedTable(2)),
	})
	if got := tk.VPartition(1); got.NumRows() != 2 {
		t.Fatalf("VPartition(1): got %d rows, want 2", got.NumRows())
	}

	tk.Cancel()
	tk.Cancel() // idempotent: must not double-release
}

// TestCancelOnPendingTaskIsNoopButMarksDone covers the pending branch
// of the cancelled-state contract: no result installed, so there is
// nothing to forward to, but the task is still marked done.
func TestCancelOnPendingTaskIsNoopButMarksDone(t *testing.T) {
	b := task.NewBuilder([]partition.T{"input-0"}, nil, partition.ResourceRequest{})
	tk := b.FinalizeSingleOutput()
	tk.Cancel()
	if !tk.Done() {
		t.Fatalf("task should be done after Cancel")
	}
}

// TestTaskIDsAreUniqueAndMonotonic covers invariant 6.
func TestTaskIDsAreUniqueAndMonotonic(t *testing.T) {
	seen := map[uint64]bool{}
	var last uint64
	for i := 0; i < 20; i++ {
		b := task.NewBuilder([]partition.T{"x"}, nil, partition.ResourceRequest{})
		tk := b.FinalizeSingleOutput()
		if seen[tk.ID()] {
			t.Fatalf("duplicate task id %d", tk.ID())
		}
		if tk.ID() <= last {
			t.Fatalf("task ids should be strictly increasing, got %d after %d", tk.ID(), last)
		}
		seen[tk.ID()] = true
		last = tk.ID()
	}
}

// TestFinalizeFreezesPipelineAgainstFurtherMutation covers invariant 3:
// a frozen task's pipeline is a snapshot, immune to the builder's
// subsequent mutation.
func TestFinalizeFreezesPipelineAgainstFurtherMutation(t *testing.T) {
	b := task.NewBuilder([]partition.T{"x"}, nil, partition.ResourceRequest{})
	b.AddInstruction(instruction.LocalLimit{K: 1}, partition.ResourceRequest{})
	tk := b.FinalizeSingleOutput()
	before := len(tk.Pipeline())

	b.AddInstruction(instruction.LocalLimit{K: 2}, partition.ResourceRequest{})
	after := len(tk.Pipeline())

	if before != after {
		t.Fatalf("frozen task's pipeline length changed from %d to %d after builder mutation", before, after)
	}
}
