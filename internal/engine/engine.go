// Package engine drives each node of a scheduled plan through its
// provider's idempotent ensure operation, at most once per run. Nodes
// execute on a worker pool as soon as their dependencies finalize; a failed
// node marks every transitive dependent skipped without aborting the pass,
// and outcomes stream to the caller in deterministic plan order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/graph"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/internal/scheduler"
)

// Options configures one engine instance.
type Options struct {
	// Workers is the size of the worker pool. 1 gives strictly sequential
	// execution in plan order.
	Workers int
	// Timeout bounds each provider invocation. Zero means no deadline.
	Timeout time.Duration
}

// Engine executes one resolution run. It owns its graph and result state
// exclusively; nothing is shared across runs.
type Engine struct {
	graph *graph.Graph
	plan  *scheduler.Plan
	reg   *registry.Registry
	opts  Options
	runID uuid.UUID

	states map[model.ResourceID]*nodeState
	ready  chan model.ResourceID
	wg     sync.WaitGroup
}

// nodeState is the mutable per-node execution state for one run.
type nodeState struct {
	status   Status
	detail   string
	err      error
	resolved map[string]string

	depCount atomic.Int32
	once     sync.Once
	done     chan struct{}
}

// New creates an engine for one resolution run.
func New(g *graph.Graph, plan *scheduler.Plan, reg *registry.Registry, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		graph: g,
		plan:  plan,
		reg:   reg,
		opts:  opts,
		runID: uuid.New(),
	}
}

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// Run executes the plan and returns a channel streaming one Report per node
// in plan order. The channel is closed once every node has a final outcome;
// the run never aborts early on provider failure. Cancelling ctx skips
// nodes that have not started yet.
func (e *Engine) Run(ctx context.Context) <-chan Report {
	logger := ctxlog.FromContext(ctx).With("runID", e.runID.String())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Engine run starting.", "nodes", e.graph.Len(), "workers", e.opts.Workers)

	e.states = make(map[model.ResourceID]*nodeState, e.graph.Len())
	for _, id := range e.plan.Order {
		state := &nodeState{done: make(chan struct{})}
		state.depCount.Store(int32(len(e.graph.Deps(id))))
		e.states[id] = state
	}

	e.ready = make(chan model.ResourceID, e.graph.Len())
	for _, id := range e.plan.Order {
		if e.states[id].depCount.Load() == 0 {
			e.ready <- id
		}
	}

	e.wg.Add(e.graph.Len())
	for i := 0; i < e.opts.Workers; i++ {
		go e.worker(ctx, i)
	}
	go func() {
		e.wg.Wait()
		close(e.ready)
	}()

	out := make(chan Report)
	go func() {
		defer close(out)
		for _, id := range e.plan.Order {
			state := e.states[id]
			<-state.done
			out <- Report{ID: id, Status: state.status, Detail: state.detail, Err: state.err}
		}
		logger.Debug("Engine run finished.")
	}()
	return out
}

// worker is the processing loop for a single concurrent worker.
func (e *Engine) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	for id := range e.ready {
		logger.Debug("Worker picked up node.", "workerID", workerID, "node", id.String())
		e.process(ctx, id)
	}
}

// process determines and records the final outcome for one node. Every
// direct dependency is guaranteed finalized before the node enters the
// ready channel.
func (e *Engine) process(ctx context.Context, id model.ResourceID) {
	logger := ctxlog.FromContext(ctx)

	if ctx.Err() != nil {
		e.finalize(ctx, id, Skipped, ReasonAborted, nil)
		return
	}

	for _, dep := range e.graph.Deps(id) {
		switch e.states[dep].status {
		case Failed:
			e.finalize(ctx, id, Skipped, fmt.Sprintf("dependency %s failed", dep.Bracket()), nil)
			return
		case Skipped:
			e.finalize(ctx, id, Skipped, fmt.Sprintf("dependency %s skipped", dep.Bracket()), nil)
			return
		}
	}

	node, ok := e.graph.Node(id)
	if !ok {
		e.finalize(ctx, id, Failed, "", fmt.Errorf("node %s missing from graph", id.Bracket()))
		return
	}

	attrs, err := e.resolveAttrs(id, node.Attrs)
	if err != nil {
		e.finalize(ctx, id, Failed, "", err)
		return
	}
	e.states[id].resolved = attrs

	prov, ok := e.reg.Resolve(node.Provider)
	if !ok {
		e.finalize(ctx, id, Failed, "", fmt.Errorf("provider '%s' not registered", node.Provider))
		return
	}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	result, err := prov.Ensure(callCtx, attrs)
	cancel()

	switch {
	case err != nil && callCtx.Err() == context.DeadlineExceeded:
		e.finalize(ctx, id, Failed, ReasonTimeout, err)
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		e.finalize(ctx, id, Skipped, ReasonAborted, nil)
	case err != nil:
		e.finalize(ctx, id, Failed, err.Error(), err)
	case result == nil:
		e.finalize(ctx, id, Failed, "", fmt.Errorf("provider '%s' returned no result", node.Provider))
	default:
		status := Applied
		if result.Outcome == provider.AlreadySatisfied {
			status = AlreadySatisfied
		}
		logger.Debug("Node ensured.", "node", id.String(), "status", status.String())
		e.finalize(ctx, id, status, result.Detail, nil)
	}
}

// finalize records a node's outcome exactly once, signals the emitter, and
// unlocks dependents whose last dependency this was.
func (e *Engine) finalize(ctx context.Context, id model.ResourceID, status Status, detail string, err error) {
	state := e.states[id]
	state.once.Do(func() {
		if status == Failed {
			ctxlog.FromContext(ctx).Error("Node failed.", "node", id.String(), "detail", detail, "error", err)
		}
		state.status = status
		state.detail = detail
		state.err = err
		close(state.done)
		for _, dep := range e.graph.Dependents(id) {
			if e.states[dep].depCount.Add(-1) == 0 {
				e.ready <- dep
			}
		}
		e.wg.Done()
	})
}
