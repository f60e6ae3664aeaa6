package schedule

import (
	"github.com/grailbio/base/errors"

	"github.com/gridtable/gridtable/instruction"
	"github.com/gridtable/gridtable/partition"
	"github.com/gridtable/gridtable/plan"
	"github.com/gridtable/gridtable/task"
)

// Construction bundles one runnable unit of work: a list of input
// partitions, an instruction pipeline to run over them, the pipeline's
// aggregated resource request, and the output fan-out count the
// pipeline's last instruction produces. Underneath, a Construction
// wraps a frozen task.PartitionTask (component C): Next builds it via
// task.Builder and ReportCompleted materializes it via SetResult, so
// these exported fields are read-only views onto the frozen task
// rather than the live stage.
type Construction struct {
	st *stage
	pt partitionTask

	Inputs     []partition.T
	Pipeline   []instruction.Instruction
	NumOutputs int
	Resources  partition.ResourceRequest
}

// partitionTask is the minimal frozen-task surface the schedule needs
// to thread a Construction through the PartitionTask lifecycle between
// Next and ReportCompleted. Both task.SingleOutputPartitionTask and
// task.MultiOutputPartitionTask satisfy it.
type partitionTask interface {
	Inputs() []partition.T
	Pipeline() []instruction.Instruction
	ResourceRequest() partition.ResourceRequest
	NumResults() int
	SetResult(results []task.MaterializedResult)
}

// ErrNotPending is the value Materialize.ReportCompleted panics with
// when called for a Construction that is not in flight: one that Next
// never handed out, or whose results were already reported.
var ErrNotPending = errors.E(errors.Fatal, "schedule: report_completed: construction is not pending")

// Materialize is the lazy dynamic schedule: a dependency graph of
// Constructions derived from an optimized plan tree, where a
// Construction becomes runnable only once every Construction it
// depends on has reported its result.
type Materialize struct {
	forward map[*stage]map[*stage]bool
	counts  map[*stage]int

	todo    []*stage
	pending map[*stage]bool

	roots []*stage
}

// ScheduleLogicalNode builds the dynamic schedule for root, compiling
// it first via Compile. This is the schedule's sole entry point: one
// optimized plan tree in, one schedule out.
func ScheduleLogicalNode(root plan.Node) *Materialize {
	roots := Compile(root)
	m := &Materialize{
		forward: map[*stage]map[*stage]bool{},
		counts:  map[*stage]int{},
		pending: map[*stage]bool{},
		roots:   roots,
	}
	visited := map[*stage]bool{}
	var order []*stage
	var visit func(s *stage)
	visit = func(s *stage) {
		if visited[s] {
			return
		}
		visited[s] = true
		producers := map[*stage]bool{}
		for _, d := range s.deps {
			producers[d.stage] = true
		}
		m.counts[s] = len(producers)
		for p := range producers {
			if m.forward[p] == nil {
				m.forward[p] = map[*stage]bool{}
			}
			m.forward[p][s] = true
			visit(p)
		}
		order = append(order, s)
	}
	for _, r := range roots {
		visit(r)
	}
	for _, s := range order {
		m.tryMakeReady(s)
	}
	return m
}

// tryMakeReady resolves source stages immediately and otherwise moves
// a stage with no outstanding dependencies onto the ready queue, at
// most once: a stage can become eligible both through the initial
// topological sweep and through a producer's markDone cascade, and
// queued guards against handing it out twice.
func (m *Materialize) tryMakeReady(s *stage) {
	if s.done || m.pending[s] || s.queued || m.counts[s] != 0 {
		return
	}
	if s.source != nil {
		result := s.source()
		m.markDone(s, []task.MaterializedResult{result})
		return
	}
	s.queued = true
	m.todo = append(m.todo, s)
}

func (m *Materialize) markDone(s *stage, results []task.MaterializedResult) {
	s.results = results
	s.done = true
	for dep := range m.forward[s] {
		m.counts[dep]--
		if m.counts[dep] == 0 {
			m.tryMakeReady(dep)
		}
	}
}

// Todo reports whether there is at least one Construction ready to
// hand out via Next.
func (m *Materialize) Todo() bool { return len(m.todo) > 0 }

// Done reports whether the schedule has nothing left to do: no ready
// Constructions and nothing in flight.
func (m *Materialize) Done() bool { return len(m.todo) == 0 && len(m.pending) == 0 }

// Next pops and returns the next ready Construction. It panics if
// called when Todo() is false; single-threaded runners must check
// Todo before calling Next (a false Todo() with Done() also false is
// the "waiting for in-flight work" idle signal, which a
// single-threaded runner can never legitimately observe since it never
// has in-flight work of its own).
func (m *Materialize) Next() *Construction {
	if len(m.todo) == 0 {
		panic("schedule: Next called with nothing runnable")
	}
	s := m.todo[0]
	m.todo = m.todo[1:]
	m.pending[s] = true

	inputs := make([]partition.T, len(s.deps))
	for i, d := range s.deps {
		inputs[i] = d.stage.results[d.output].Partition()
	}

	b := task.NewBuilder(inputs, nil, s.resources)
	for _, inst := range s.pipeline {
		b.AddInstruction(inst, partition.ResourceRequest{})
	}
	var pt partitionTask
	if s.numOutputs == 1 {
		pt = b.FinalizeSingleOutput()
	} else {
		pt = b.FinalizeMultiOutput(s.numOutputs)
	}

	return &Construction{
		st:         s,
		pt:         pt,
		Inputs:     pt.Inputs(),
		Pipeline:   pt.Pipeline(),
		NumOutputs: pt.NumResults(),
		Resources:  pt.ResourceRequest(),
	}
}

// ReportCompleted materializes c's underlying PartitionTask via
// SetResult, installs the results on c's stage, and unblocks any
// dependent Construction whose last outstanding input was c's stage.
func (m *Materialize) ReportCompleted(c *Construction, results []task.MaterializedResult) {
	if !m.pending[c.st] {
		panic(ErrNotPending)
	}
	c.pt.SetResult(results)
	delete(m.pending, c.st)
	m.markDone(c.st, results)
}

// Result returns the root node's materialized output partitions, one
// per root stage, in order. It panics if called before Done().
func (m *Materialize) Result() []task.MaterializedResult {
	if !m.Done() {
		panic("schedule: Result called before schedule is done")
	}
	out := make([]task.MaterializedResult, len(m.roots))
	for i, r := range m.roots {
		out[i] = r.results[0]
	}
	return out
}
