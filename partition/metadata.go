// Package partition holds the value types describing a partition's
// shape before and after materialization, and the resources an
// instruction pipeline requires to run.
package partition

// T is the opaque handle to a partition. The core never dereferences
// it directly; it is passed through to a Table only via
// MaterializedResult. Concrete runners fill this in with whatever they
// use to locate a partition (an in-memory Table, a remote worker
// reference, ...).
type T = interface{}

// PartialPartitionMetadata is compile-time knowledge about a
// not-yet-materialized partition. Any field may be unknown; absence is
// data and must never be invented by a propagation rule.
type PartialPartitionMetadata struct {
	NumRows   *uint64
	SizeBytes *uint64
}

// UnknownPartialMetadata returns a metadata value with both fields
// unknown.
func UnknownPartialMetadata() PartialPartitionMetadata {
	return PartialPartitionMetadata{}
}

// KnownRows returns a partial metadata value with a known row count
// and an unknown size.
func KnownRows(n uint64) PartialPartitionMetadata {
	return PartialPartitionMetadata{NumRows: &n}
}

// Rows returns the row count and whether it is known.
func (m PartialPartitionMetadata) Rows() (uint64, bool) {
	if m.NumRows == nil {
		return 0, false
	}
	return *m.NumRows, true
}

// Size returns the byte size and whether it is known.
func (m PartialPartitionMetadata) Size() (uint64, bool) {
	if m.SizeBytes == nil {
		return 0, false
	}
	return *m.SizeBytes, true
}

// PartitionMetadata is the concrete, fully-known counterpart produced
// post-materialization.
type PartitionMetadata struct {
	NumRows   uint64
	SizeBytes uint64
}

// Partial upgrades a concrete metadata value to its partial form, in
// which both fields are known.
func (m PartitionMetadata) Partial() PartialPartitionMetadata {
	rows, size := m.NumRows, m.SizeBytes
	return PartialPartitionMetadata{NumRows: &rows, SizeBytes: &size}
}

// ResourceRequest describes the compute resources an instruction, or
// an aggregated pipeline of instructions, requires.
type ResourceRequest struct {
	NumCPUs     *float32
	NumGPUs     *float32
	MemoryBytes *uint64
}

// NewResourceRequest builds a ResourceRequest from optional fields,
// with 0/negative treated as "present" here; callers pass nil to mark
// a field absent.
func NewResourceRequest(cpus, gpus *float32, memBytes *uint64) ResourceRequest {
	return ResourceRequest{NumCPUs: cpus, NumGPUs: gpus, MemoryBytes: memBytes}
}

// CPUs, GPUs and Memory are convenience constructors for a
// ResourceRequest with a single field set.
func CPUs(n float32) ResourceRequest  { return ResourceRequest{NumCPUs: &n} }
func GPUs(n float32) ResourceRequest  { return ResourceRequest{NumGPUs: &n} }
func Memory(n uint64) ResourceRequest { return ResourceRequest{MemoryBytes: &n} }

// MaxOf returns the element-wise maximum of a and b, where an absent
// field is the identity (i.e. the other side's value, possibly also
// absent).
func MaxOf(a, b ResourceRequest) ResourceRequest {
	return ResourceRequest{
		NumCPUs:     maxFloat(a.NumCPUs, b.NumCPUs),
		NumGPUs:     maxFloat(a.NumGPUs, b.NumGPUs),
		MemoryBytes: maxUint(a.MemoryBytes, b.MemoryBytes),
	}
}

func maxFloat(a, b *float32) *float32 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a >= *b:
		return a
	default:
		return b
	}
}

func maxUint(a, b *uint64) *uint64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a >= *b:
		return a
	default:
		return b
	}
}

// FinalizeSingleOutput applies the defaulting rule used when freezing
// a single-output PartitionTask: num_cpus defaults to 1.0 if absent,
// and a zero memory_bytes is coerced to absent (a workaround some
// downstream executors need; see DESIGN.md).
func FinalizeSingleOutput(r ResourceRequest) ResourceRequest {
	out := r
	if out.NumCPUs == nil {
		out.NumCPUs = floatPtr(1.0)
	}
	if out.MemoryBytes != nil && *out.MemoryBytes == 0 {
		out.MemoryBytes = nil
	}
	return out
}

// FinalizeMultiOutput applies the defaulting rule used when freezing a
// multi-output PartitionTask: num_cpus defaults to 1.0 if absent, but
// memory_bytes is preserved verbatim, including a zero value.
func FinalizeMultiOutput(r ResourceRequest) ResourceRequest {
	out := r
	if out.NumCPUs == nil {
		out.NumCPUs = floatPtr(1.0)
	}
	return out
}

func floatPtr(v float32) *float32 { return &v }
