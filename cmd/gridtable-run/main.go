// Command gridtable-run drives a small demonstration plan end to end
// through the optimizer, schedule, and runner: it scans a synthetic
// in-memory partition set, limits it, and reports the result.
package main

import (
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/plan"
	"github.com/gridtable/gridtable/runner"
	"github.com/gridtable/gridtable/table"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error.Printf("gridtable-run: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		partitions  int
		rowsPerPart int
		limit       int
		parallelism int
	)
	cmd := &cobra.Command{
		Use:   "gridtable-run",
		Short: "Run a demonstration plan through the gridtable scheduler and runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := demoPlan(partitions, rowsPerPart, limit)
			r := runner.New(runner.Config{Parallelism: parallelism})
			results, err := r.Run(cmd.Context(), "demo", root)
			if err != nil {
				return err
			}
			for i, res := range results {
				meta := res.Metadata()
				fmt.Printf("partition %d: rows=%d bytes=%d\n", i, meta.NumRows, meta.SizeBytes)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&partitions, "partitions", 4, "number of synthetic input partitions")
	cmd.Flags().IntVar(&rowsPerPart, "rows-per-partition", 100, "rows generated per input partition")
	cmd.Flags().IntVar(&limit, "limit", 10, "global row limit applied to the scan")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "maximum concurrent constructions")
	return cmd
}

// demoPlan builds Limit(Read(n partitions of rowsPerPart synthetic
// rows each), limit): enough of the node algebra to exercise a
// reduce-then-slice shuffle boundary without any real file I/O.
func demoPlan(partitions, rowsPerPart, limit int) plan.Node {
	read := &plan.Read{
		NumPartitions: partitions,
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
	return &plan.Limit{Input: read, K: limit}
}
