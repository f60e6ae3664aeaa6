package runner_test

import (
	"context"
	"testing"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/plan"
	"github.com/gridtable/gridtable/runner"
	"github.com/gridtable/gridtable/table"
)

func syntheticRead(numPartitions, rowsPerPart int) *plan.Read {
	return &plan.Read{
		NumPartitions: numPartitions,
		Plan:          instruction.FileScanPlan{Format: "synthetic"},
		FilePaths: func(i int) *table.Table {
			return table.FromColumns([]string{"partition"}, []interface{}{[]int64{int64(i)}})
		},
		ReadFn: func(filepaths *table.Table, partitionIndex int, innerFileIndex *int, scan instruction.FileScanPlan) *table.Table {
			values := make([]int64, rowsPerPart)
			for i := range values {
				values[i] = int64(partitionIndex*rowsPerPart + i)
			}
			return table.FromColumns([]string{"value"}, []interface{}{values})
		},
	}
}

func TestSequentialRunMatchesExpectedRowCount(t *testing.T) {
	r := runner.New(runner.Config{Parallelism: 1})
	root := &plan.Limit{Input: syntheticRead(3, 10), K: 7}
	results, err := r.Run(context.Background(), "demo", root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Metadata().NumRows != 7 {
		t.Fatalf("got %+v, want 1 partition of 7 rows", results)
	}

	cached, ok := r.Lookup("demo")
	if !ok || len(cached) != 1 {
		t.Fatalf("Lookup after Run should return the cached result")
	}
}

func TestParallelRepartitionPreservesRowCount(t *testing.T) {
	r := runner.New(runner.Config{Parallelism: 4})
	root := &plan.Repartition{Input: syntheticRead(3, 15), NumOutputs: 5, PartitionBy: []string{"value"}}
	results, err := r.Run(context.Background(), "fanout", root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d partitions, want 5", len(results))
	}
	var total uint64
	for _, res := range results {
		total += res.Metadata().NumRows
	}
	if total != 45 {
		t.Fatalf("got %d total rows, want 45", total)
	}
}

func TestLookupMissingHandle(t *testing.T) {
	r := runner.New(runner.Config{})
	if _, ok := r.Lookup("nope"); ok {
		t.Fatalf("Lookup of an unknown handle should report ok=false")
	}
}
