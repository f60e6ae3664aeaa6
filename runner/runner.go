// Package runner executes a dynamic schedule (package schedule)
// against a Table-backed instruction algebra (packages instruction,
// table), producing MaterializedResults (package task) and caching
// completed root results for later retrieval.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/limiter"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"golang.org/x/sync/errgroup"

	"github.com/gridtable/gridtable/plan"
	"github.com/gridtable/gridtable/schedule"
	"github.com/gridtable/gridtable/table"
	"github.com/gridtable/gridtable/task"
)

// Config holds runner tuning knobs. Zero-value Config is usable:
// every field has a documented default applied by normalize.
type Config struct {
	// Parallelism bounds how many Constructions may run concurrently.
	// A value <= 1 runs the schedule on the calling goroutine with no
	// concurrency at all. Default: 1.
	Parallelism int

	// DefaultSampleSize is the per-partition sample size a Sort plan
	// node uses when the caller does not specify one. Default: 20.
	DefaultSampleSize int

	// DefaultNumQuantiles is the number of range-partition buckets a
	// Sort plan node uses when the caller does not specify one.
	// Default: 4.
	DefaultNumQuantiles int
}

func (c Config) normalize() Config {
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.DefaultSampleSize <= 0 {
		c.DefaultSampleSize = 20
	}
	if c.DefaultNumQuantiles <= 0 {
		c.DefaultNumQuantiles = 4
	}
	return c
}

// Runner optimizes plans, builds and drives their schedule, and caches
// completed results by handle.
type Runner struct {
	cfg    Config
	limit  *limiter.Limiter
	status *status.Group

	mu    sync.Mutex
	cache map[string][]task.MaterializedResult
}

// New returns a Runner configured by cfg.
func New(cfg Config) *Runner {
	cfg = cfg.normalize()
	l := limiter.New()
	l.Release(cfg.Parallelism)
	return &Runner{cfg: cfg, limit: l, status: &status.Group{}, cache: map[string][]task.MaterializedResult{}}
}

// ErrEmptyPipeline guards a Construction that carries no instructions:
// the schedule never produces one, so reaching this is a compiler bug.
var ErrEmptyPipeline = errors.E(errors.Fatal, "runner: construction has an empty pipeline")

// Run optimizes root, builds its schedule, drives it to completion,
// and stores the result under handle for later lookup via Lookup.
// Concurrency is bounded by cfg.Parallelism; with Parallelism <= 1 the
// schedule is driven strictly sequentially on the calling goroutine.
func (r *Runner) Run(ctx context.Context, handle string, root plan.Node) ([]task.MaterializedResult, error) {
	optimized := plan.Optimize(root)
	var fillSortDefaults func(n plan.Node)
	fillSortDefaults = func(n plan.Node) {
		if s, ok := n.(*plan.Sort); ok {
			if s.SampleSize <= 0 {
				s.SampleSize = r.cfg.DefaultSampleSize
			}
			if s.NumQuantiles <= 0 {
				s.NumQuantiles = r.cfg.DefaultNumQuantiles
			}
		}
		for _, ch := range n.Children() {
			fillSortDefaults(ch)
		}
	}
	fillSortDefaults(optimized)
	sched := schedule.ScheduleLogicalNode(optimized)

	if r.cfg.Parallelism <= 1 {
		if err := r.runSequential(sched); err != nil {
			return nil, err
		}
	} else {
		if err := r.runParallel(ctx, sched); err != nil {
			return nil, err
		}
	}

	results := sched.Result()
	r.mu.Lock()
	r.cache[handle] = results
	r.mu.Unlock()
	return results, nil
}

// Lookup returns a previously cached root result set by handle.
func (r *Runner) Lookup(handle string) ([]task.MaterializedResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[handle]
	return res, ok
}

// runSequential mirrors a single-threaded dynamic_runner.run: it pulls
// exactly one Construction at a time and reports its result before the
// schedule is asked for the next.
func (r *Runner) runSequential(sched *schedule.Materialize) error {
	for !sched.Done() {
		if !sched.Todo() {
			return errors.E(errors.Fatal, "runner: sequential schedule stalled without pending work")
		}
		c := sched.Next()
		results, err := runConstruction(c)
		if err != nil {
			return err
		}
		sched.ReportCompleted(c, results)
	}
	return nil
}

// runParallel dispatches every currently-ready Construction
// concurrently, bounded by the runner's limiter, and once the whole
// batch has finished reports its results back to the single-threaded
// schedule coordinator in batch order -- the schedule itself is never
// touched from more than one goroutine at a time.
func (r *Runner) runParallel(ctx context.Context, sched *schedule.Materialize) error {
	for !sched.Done() {
		if !sched.Todo() {
			return errors.E(errors.Fatal, "runner: parallel schedule stalled without pending or runnable work")
		}
		var batch []*schedule.Construction
		for sched.Todo() {
			batch = append(batch, sched.Next())
		}
		r.status.Printf("constructions: dispatching %d", len(batch))

		g, gctx := errgroup.WithContext(ctx)
		type outcome struct {
			c       *schedule.Construction
			results []task.MaterializedResult
		}
		outcomes := make([]outcome, len(batch))
		for i, c := range batch {
			i, c := i, c
			g.Go(func() error {
				if err := r.limit.Acquire(gctx, 1); err != nil {
					return err
				}
				defer r.limit.Release(1)
				prog := r.status.Startf("construction %d/%d", i+1, len(batch))
				results, err := runConstruction(c)
				prog.Done()
				if err != nil {
					return err
				}
				outcomes[i] = outcome{c: c, results: results}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, o := range outcomes {
			sched.ReportCompleted(o.c, o.results)
		}
	}
	return nil
}

// runConstruction is the core's get_runnable(): it threads c's input
// partitions through c.Pipeline in order and wraps the final tables as
// local MaterializedResults.
func runConstruction(c *schedule.Construction) ([]task.MaterializedResult, error) {
	if len(c.Pipeline) == 0 {
		return nil, ErrEmptyPipeline
	}
	tables := make([]*table.Table, len(c.Inputs))
	for i, p := range c.Inputs {
		t, ok := p.(*table.Table)
		if !ok {
			return nil, errors.E(errors.Fatal, "runner: construction input is not a *table.Table")
		}
		tables[i] = t
	}

	log.Debug.Printf("runner: running pipeline of %d instructions over %d input(s)", len(c.Pipeline), len(tables))
	for _, inst := range c.Pipeline {
		tables = inst.Run(tables)
	}

	if len(tables) != c.NumOutputs {
		return nil, errors.E(errors.Fatal, fmt.Sprintf("runner: pipeline produced %d outputs, want %d", len(tables), c.NumOutputs))
	}
	results := make([]task.MaterializedResult, len(tables))
	for i, t := range tables {
		results[i] = task.NewLocalResult(t)
	}
	return results, nil
}
