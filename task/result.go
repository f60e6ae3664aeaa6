package task

import (
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/table"
)

// LocalResult is the in-process MaterializedResult implementation: the
// partition it wraps already lives in this address space, so Cancel
// has nothing to release beyond letting the table's Arrow-backed
// record get garbage collected.
type LocalResult struct {
	t    *table.Table
	meta partition.PartitionMetadata
}

// NewLocalResult wraps t as a MaterializedResult, computing its
// metadata from the table itself.
func NewLocalResult(t *table.Table) *LocalResult {
	return &LocalResult{
		t: t,
		meta: partition.PartitionMetadata{
			NumRows:   uint64(t.NumRows()),
			SizeBytes: estimateSize(t),
		},
	}
}

func (r *LocalResult) Partition() partition.T                    { return r.t }
func (r *LocalResult) VPartition() *table.Table                  { return r.t }
func (r *LocalResult) Metadata() partition.PartitionMetadata     { return r.meta }
func (r *LocalResult) Cancel()                                   { r.t.Release() }

// estimateSize approximates a table's in-memory footprint from its
// Arrow record buffers. It is a rough figure, not an exact accounting;
// exact byte counts require per-buffer slicing arithmetic this module
// does not need.
func estimateSize(t *table.Table) uint64 {
	rec := t.Record()
	var total int64
	for _, col := range rec.Columns() {
		for _, buf := range col.Data().Buffers() {
			if buf != nil {
				total += int64(buf.Len())
			}
		}
	}
	if total < 0 {
		total = 0
	}
	return uint64(total)
}
