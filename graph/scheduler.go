package graph

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/flowforge/flowforge-go/graph/resolve"
)

// RunStatus is the lifecycle state of a workflow run, persisted with every
// checkpoint.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSuspended RunStatus = "suspended"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// WorkflowState is the durable snapshot of a run a CheckpointStore persists:
// what remains in the queue and what every node has produced so far, plus
// the run's workflow-scoped variables and terminal status.
type WorkflowState struct {
	RunID       string
	GraphID     string
	Queue       []string
	NodeOutputs map[string]map[string]any
	Variables   map[string]any
	Recordings  map[string][]RecordedIO
	Status      RunStatus
	Error       string
	UpdatedAt   time.Time
}

// CheckpointStore persists and reloads WorkflowState, the durability layer
// beneath Scheduler.Run / Scheduler.Resume.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, state WorkflowState) error
	LoadCheckpoint(ctx context.Context, runID string) (*WorkflowState, error)
}

// StreamerFactory mints a run-scoped EventEmitter. Scheduler calls it once
// per top-level run and once per child run spawned via RunChild.
type StreamerFactory func(runID string) EventEmitter

// RunOptions configures a single Scheduler.Run invocation.
type RunOptions struct {
	// RunID, if empty, is generated.
	RunID string

	// Inputs seed the run's workflow-scoped variables.
	Inputs map[string]any

	// Resources is handed to every node's ExecutionContext.
	Resources ResourceManager
}

// Scheduler walks a Graph to completion, one node at a time, from a FIFO
// execution queue. It is the sole owner of a run's control flow: resolving
// each node's inputs, invoking its component under the node's timeout/retry
// policy, routing to the node's out-edges based on the component's chosen
// handle, and checkpointing after every step so a run can be resumed from
// exactly where it left off.
type Scheduler struct {
	checkpoints CheckpointStore
	streamers   StreamerFactory
	hooks       []Hook
	opts        schedulerOptions
}

// NewScheduler constructs a Scheduler. checkpoints may be nil, in which case
// Run never persists and Resume always fails; streamers may be nil, in
// which case no events are published.
func NewScheduler(checkpoints CheckpointStore, streamers StreamerFactory, hooks []Hook, opts ...Option) *Scheduler {
	o := schedulerOptions{
		maxSteps:                10000,
		defaultComponentTimeout: 30 * time.Second,
		fanoutConcurrency:       5,
		logger:                  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler{checkpoints: checkpoints, streamers: streamers, hooks: hooks, opts: o}
}

// Run starts a new execution of g from its entry point.
func (s *Scheduler) Run(ctx context.Context, g *Graph, opts RunOptions) (map[string]any, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	execCtx := NewExecutionContext(runID, opts.Inputs, s.streamerFor(runID), opts.Resources, s)
	fireHooks(s.hooks, func(h Hook) { h.OnRunStart(ctx, runID, opts.Inputs) })

	return s.runLoop(ctx, g, runID, []string{g.EntryPoint()}, execCtx)
}

// Resume continues a suspended or failed run from its last checkpoint; a
// completed run starts over from the graph's entry node, keeping its
// variables but not its node outputs or recordings. overrides, if non-nil, are merged into the run's variables before
// execution continues (e.g. supplying the external answer a suspended node
// was waiting on).
func (s *Scheduler) Resume(ctx context.Context, g *Graph, runID string, overrides map[string]any) (map[string]any, error) {
	if s.checkpoints == nil {
		return nil, &SchedulerError{Code: "NO_CHECKPOINT_STORE", Message: "scheduler has no checkpoint store configured", RunID: runID}
	}
	state, err := s.checkpoints.LoadCheckpoint(ctx, runID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrRunNotFound
	}
	if state.Status != StatusSuspended && state.Status != StatusFailed && state.Status != StatusCompleted {
		return nil, ErrAlreadyRunning
	}

	execCtx := NewExecutionContext(runID, state.Variables, s.streamerFor(runID), nil, s)
	queue := append([]string(nil), state.Queue...)
	if state.Status == StatusCompleted {
		queue = []string{g.EntryPoint()}
	} else {
		execCtx.Restore(state.NodeOutputs, state.Variables, state.Recordings)
	}
	for k, v := range overrides {
		execCtx.SetVariable(k, v)
	}

	fireHooks(s.hooks, func(h Hook) { h.OnRunStart(ctx, runID, overrides) })
	return s.runLoop(ctx, g, runID, queue, execCtx)
}

// RunChild implements SubWorkflowExecutor, letting a component invoke a
// nested graph to completion and receive its final output. Child runs get
// their own id (derived from the parent's) and their own event stream. A
// child's variables are exactly inputs: it does not see the parent's
// variables, and it runs with no resource manager.
func (s *Scheduler) RunChild(ctx context.Context, g *Graph, inputs map[string]any, parentRunID string) (map[string]any, error) {
	childID := parentRunID + "/" + uuid.NewString()
	execCtx := NewExecutionContext(childID, inputs, s.streamerFor(childID), nil, s)
	return s.runLoop(ctx, g, childID, []string{g.EntryPoint()}, execCtx)
}

func (s *Scheduler) streamerFor(runID string) EventEmitter {
	if s.streamers == nil {
		return nil
	}
	return s.streamers(runID)
}

// runLoop is the scheduler's core: pop a node, resolve its inputs, invoke
// it, route to its out-edges, repeat until the queue drains or the run
// suspends or fails.
func (s *Scheduler) runLoop(ctx context.Context, g *Graph, runID string, queue []string, execCtx *ExecutionContext) (map[string]any, error) {
	inQueue := make(map[string]bool, len(queue))
	for _, id := range queue {
		inQueue[id] = true
	}

	lastNodeID := ""
	steps := 0

	for len(queue) > 0 {
		if s.opts.metrics != nil {
			s.opts.metrics.UpdateQueueLength(runID, len(queue))
		}

		nodeID := queue[0]
		queue = queue[1:]
		inQueue[nodeID] = false

		if nodeID == SuspendSentinel {
			return s.suspend(ctx, runID, g, queue, execCtx)
		}

		steps++
		if steps > s.opts.maxSteps {
			return s.fail(ctx, runID, g, append([]string{nodeID}, queue...), execCtx, ErrMaxStepsExceeded)
		}

		node, ok := g.Node(nodeID)
		if !ok {
			return s.fail(ctx, runID, g, append([]string{nodeID}, queue...), execCtx, &SchedulerError{
				Code: "UNKNOWN_NODE", Message: "queued node not found in graph", RunID: runID, NodeID: nodeID, Cause: ErrUnknownNode,
			})
		}

		output, err := s.invoke(ctx, runID, node, execCtx)
		if err != nil {
			return s.fail(ctx, runID, g, append([]string{nodeID}, queue...), execCtx, err)
		}

		execCtx.SetNodeOutput(nodeID, output)
		lastNodeID = nodeID

		next := routeFrom(g, nodeID, output)
		for _, id := range next {
			if inQueue[id] {
				continue
			}
			inQueue[id] = true
			queue = append(queue, id)
		}

		if s.checkpoints != nil {
			nodeOutputs, variables := execCtx.Snapshot()
			if err := s.checkpoints.SaveCheckpoint(ctx, WorkflowState{
				RunID:       runID,
				GraphID:     g.ID,
				Queue:       append([]string(nil), queue...),
				NodeOutputs: nodeOutputs,
				Variables:   variables,
				Recordings:  execCtx.Recordings(),
				Status:      StatusRunning,
				UpdatedAt:   time.Now(),
			}); err != nil {
				return s.fail(ctx, runID, g, queue, execCtx, err)
			}
		}
	}

	return s.complete(ctx, runID, g, execCtx, lastNodeID)
}

// routeFrom selects which of nodeID's out-edges fire given its output: an
// edge with no SourceHandle always fires; an edge with a SourceHandle fires
// only when it matches the output's ActiveHandleKey selection.
func routeFrom(g *Graph, nodeID string, output map[string]any) []string {
	handle, _ := output[ActiveHandleKey].(string)
	var next []string
	for _, e := range g.OutgoingEdges(nodeID) {
		if e.SourceHandle == "" || e.SourceHandle == handle {
			next = append(next, e.To)
		}
	}
	return next
}

// invoke resolves a node's inputs and calls its component, retrying
// according to the node's RetryPolicy on failure.
func (s *Scheduler) invoke(ctx context.Context, runID string, node *Node, execCtx *ExecutionContext) (map[string]any, error) {
	fireHooks(s.hooks, func(h Hook) { h.OnNodeStart(ctx, runID, node.ID, node.Inputs) })
	emit(ctx, execCtx, "node_started", map[string]any{"node_id": node.ID}, node.ID)

	inputs, err := resolve.Resolve(node.Inputs, execCtx.Resolver(nil))
	if err != nil {
		componentErr := &ComponentError{NodeID: node.ID, Cause: err}
		fireHooks(s.hooks, func(h Hook) { h.OnNodeEnd(ctx, runID, node.ID, nil, componentErr) })
		return nil, componentErr
	}

	var retry *RetryPolicy
	if node.Policy != nil {
		retry = node.Policy.Retry
	}
	maxAttempts := 1
	if retry != nil {
		maxAttempts = retry.MaxAttempts
	}

	recordable := node.Policy != nil && node.Policy.SideEffect != nil && node.Policy.SideEffect.Recordable

	var output map[string]any
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := computeBackoff(attempt-1, retry.BaseDelay, retry.MaxDelay, nil)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			if s.opts.metrics != nil {
				s.opts.metrics.IncrementRetries(runID, node.ID, "error")
			}
		}

		if recordable {
			if rec, ok := execCtx.RecordingFor(node.ID, attempt); ok {
				output, lastErr = rec.Output, nil
				break
			}
		}

		start := time.Now()
		output, lastErr = invokeWithTimeout(ctx, node.Component, node.ID, inputs, node.Config, execCtx, node.Policy, s.opts.defaultComponentTimeout)
		status := "success"
		if lastErr != nil {
			status = "error"
		}
		if s.opts.metrics != nil {
			s.opts.metrics.RecordStepLatency(runID, node.ID, time.Since(start), status)
		}

		if lastErr == nil {
			if recordable {
				if rec, err := newRecording(node.ID, attempt, output); err == nil {
					execCtx.RecordIO(node.ID, rec)
				}
			}
			break
		}
		if retry == nil || retry.Retryable == nil || !retry.Retryable(lastErr) {
			break
		}
	}

	if lastErr != nil {
		if s.opts.metrics != nil {
			s.opts.metrics.IncrementNodeFailures(runID, node.ID)
		}
		componentErr := lastErr
		if !errors.As(lastErr, new(*ComponentError)) {
			componentErr = &ComponentError{NodeID: node.ID, Cause: lastErr}
		}
		emit(ctx, execCtx, "node_error", map[string]any{"node_id": node.ID, "error": componentErr.Error()}, node.ID)
		fireHooks(s.hooks, func(h Hook) { h.OnNodeEnd(ctx, runID, node.ID, nil, componentErr) })
		return nil, componentErr
	}

	emit(ctx, execCtx, "node_finished", map[string]any{"node_id": node.ID, "output": output}, node.ID)
	fireHooks(s.hooks, func(h Hook) { h.OnNodeEnd(ctx, runID, node.ID, output, nil) })
	return output, nil
}

func (s *Scheduler) suspend(ctx context.Context, runID string, g *Graph, queue []string, execCtx *ExecutionContext) (map[string]any, error) {
	if s.checkpoints != nil {
		nodeOutputs, variables := execCtx.Snapshot()
		_ = s.checkpoints.SaveCheckpoint(ctx, WorkflowState{
			RunID:       runID,
			GraphID:     g.ID,
			Queue:       append([]string(nil), queue...),
			NodeOutputs: nodeOutputs,
			Variables:   variables,
			Recordings:  execCtx.Recordings(),
			Status:      StatusSuspended,
			UpdatedAt:   time.Now(),
		})
	}
	emit(ctx, execCtx, "run_suspended", map[string]any{}, runID)
	fireHooks(s.hooks, func(h Hook) { h.OnRunSuspend(ctx, runID) })
	return nil, nil
}

func (s *Scheduler) fail(ctx context.Context, runID string, g *Graph, queue []string, execCtx *ExecutionContext, cause error) (map[string]any, error) {
	if s.checkpoints != nil {
		nodeOutputs, variables := execCtx.Snapshot()
		_ = s.checkpoints.SaveCheckpoint(ctx, WorkflowState{
			RunID:       runID,
			GraphID:     g.ID,
			Queue:       append([]string(nil), queue...),
			NodeOutputs: nodeOutputs,
			Variables:   variables,
			Recordings:  execCtx.Recordings(),
			Status:      StatusFailed,
			Error:       cause.Error(),
			UpdatedAt:   time.Now(),
		})
	}
	emit(ctx, execCtx, "workflow_failed", map[string]any{"error": cause.Error()}, runID)
	fireHooks(s.hooks, func(h Hook) { h.OnRunEnd(ctx, runID, nil, cause) })
	return nil, cause
}

func (s *Scheduler) complete(ctx context.Context, runID string, g *Graph, execCtx *ExecutionContext, lastNodeID string) (map[string]any, error) {
	output := finalOutput(g, execCtx, lastNodeID)

	if s.checkpoints != nil {
		nodeOutputs, variables := execCtx.Snapshot()
		_ = s.checkpoints.SaveCheckpoint(ctx, WorkflowState{
			RunID:       runID,
			GraphID:     g.ID,
			NodeOutputs: nodeOutputs,
			Variables:   variables,
			Recordings:  execCtx.Recordings(),
			Status:      StatusCompleted,
			UpdatedAt:   time.Now(),
		})
	}
	emit(ctx, execCtx, "workflow_completed", map[string]any{"output": output}, runID)
	fireHooks(s.hooks, func(h Hook) { h.OnRunEnd(ctx, runID, output, nil) })
	return output, nil
}

// finalOutput implements the run's final-output convention: prefer the
// graph's explicit exit node if one is set (and it ran), else fall back to
// the last-executed node's output.
func finalOutput(g *Graph, execCtx *ExecutionContext, lastNodeID string) map[string]any {
	if exit := g.ExitPoint(); exit != "" {
		if out, ok := execCtx.NodeOutput(exit); ok {
			return out
		}
	}
	if lastNodeID == "" {
		return map[string]any{}
	}
	out, _ := execCtx.NodeOutput(lastNodeID)
	return out
}

// emit publishes an event through execCtx's streamer, swallowing publish
// errors — telemetry must never fail a run.
func emit(ctx context.Context, execCtx *ExecutionContext, eventType string, payload map[string]any, producerID string) {
	_, _ = execCtx.Emit(ctx, eventType, payload, producerID, nil)
}

// RunFanout executes items concurrently as independent child runs of g,
// bounded by the scheduler's configured fanout concurrency, for use by
// map/loop components. Results preserve the input order; an item's error
// does not cancel its siblings.
func (s *Scheduler) RunFanout(ctx context.Context, g *Graph, parentRunID string, items []map[string]any) ([]map[string]any, []error) {
	results := make([]map[string]any, len(items))
	errs := make([]error, len(items))

	sem := semaphore.NewWeighted(s.opts.fanoutConcurrency)
	done := make(chan struct{}, len(items))

	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			out, err := s.RunChild(ctx, g, item, parentRunID)
			results[i] = out
			errs[i] = err
		}()
	}
	for range items {
		<-done
	}
	return results, errs
}
