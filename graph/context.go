package graph

import (
	"context"
	"sync"

	"github.com/flowforge/flowforge-go/graph/resolve"
)

// EventEmitter publishes a single workflow event and returns the sequence
// number it was assigned within its run. Implementations (see graph/emit)
// decide durability and delivery; the scheduler only needs this much of the
// contract to narrate its own lifecycle.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload map[string]any, producerID string, metadata map[string]any) (int64, error)
}

// ResourceManager resolves a named external resource (an HTTP client, a
// credential, a shared connection) on behalf of a component. It is supplied
// by the host application; the scheduler never constructs one itself.
type ResourceManager interface {
	Resolve(ctx context.Context, name string) (any, error)
}

// SubWorkflowExecutor runs a nested graph to completion on behalf of a
// component (e.g. a "call workflow" built-in) and returns its final output.
// The Scheduler implements this interface against itself.
type SubWorkflowExecutor interface {
	RunChild(ctx context.Context, g *Graph, inputs map[string]any, parentRunID string) (map[string]any, error)
}

// ExecutionContext is the per-run service bundle threaded through every
// Component.Invoke call. It carries the accumulated node output cache and
// workflow variables that the value resolver reads from, plus handles to
// services (streamer, resource manager, sub-workflow executor) that a
// component may use but that are never themselves persisted — only the
// data they produce is.
type ExecutionContext struct {
	mu sync.RWMutex

	runID       string
	nodeOutputs map[string]map[string]any
	variables   map[string]any
	meta        map[string]any

	streamer   EventEmitter
	resources  ResourceManager
	executor   SubWorkflowExecutor
	recordings map[string][]RecordedIO
}

// NewExecutionContext builds a fresh context for a run. A nil streamer,
// resources, or executor is valid; callers that never use them (most unit
// tests) can omit them entirely.
func NewExecutionContext(runID string, variables map[string]any, streamer EventEmitter, resources ResourceManager, executor SubWorkflowExecutor) *ExecutionContext {
	if variables == nil {
		variables = map[string]any{}
	}
	return &ExecutionContext{
		runID:       runID,
		nodeOutputs: make(map[string]map[string]any),
		variables:   variables,
		meta:        make(map[string]any),
		streamer:    streamer,
		resources:   resources,
		executor:    executor,
		recordings:  make(map[string][]RecordedIO),
	}
}

// RecordingFor returns the recorded I/O for nodeID's given attempt, if one
// was captured on a prior execution of this run.
func (ec *ExecutionContext) RecordingFor(nodeID string, attempt int) (RecordedIO, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	for _, rec := range ec.recordings[nodeID] {
		if rec.Attempt == attempt {
			return rec, true
		}
	}
	return RecordedIO{}, false
}

// RecordIO stores rec under nodeID, making it available to a future replay
// of the same run via RecordingFor.
func (ec *ExecutionContext) RecordIO(nodeID string, rec RecordedIO) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.recordings[nodeID] = append(ec.recordings[nodeID], rec)
}

// RunID returns the run this context belongs to.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// SetNodeOutput records the output bundle produced by nodeID, making it
// visible to every subsequent Resolve call for the rest of the run.
func (ec *ExecutionContext) SetNodeOutput(nodeID string, output map[string]any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.nodeOutputs[nodeID] = output
}

// NodeOutput returns the previously recorded output for nodeID, if any.
func (ec *ExecutionContext) NodeOutput(nodeID string) (map[string]any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out, ok := ec.nodeOutputs[nodeID]
	return out, ok
}

// SetVariable assigns a workflow-scoped variable, visible by name to every
// node's input mapping for the rest of the run. Child runs started through
// Scheduler.RunChild do not see it.
func (ec *ExecutionContext) SetVariable(name string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.variables[name] = value
}

// SetMeta attaches an out-of-band annotation (e.g. a trace id) that is not
// visible to the value resolver but travels with the context for the rest
// of the run.
func (ec *ExecutionContext) SetMeta(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.meta[key] = value
}

// Meta returns a previously set annotation.
func (ec *ExecutionContext) Meta(key string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.meta[key]
	return v, ok
}

// Resolver returns a resolve.Source snapshotting the current node outputs
// and variables, ready to be merged with per-call overrides (e.g. a loop's
// item/index) and passed to resolve.Resolve.
func (ec *ExecutionContext) Resolver(overrides map[string]any) resolve.Source {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	outputs := make(map[string]map[string]any, len(ec.nodeOutputs))
	for k, v := range ec.nodeOutputs {
		outputs[k] = v
	}
	vars := make(map[string]any, len(ec.variables))
	for k, v := range ec.variables {
		vars[k] = v
	}
	return resolve.Source{
		Variables:   vars,
		NodeOutputs: outputs,
		Overrides:   overrides,
	}
}

// Snapshot returns copies of the node output cache and variables, suitable
// for persisting in a checkpoint. Recorded I/O is returned by Recordings.
func (ec *ExecutionContext) Snapshot() (nodeOutputs map[string]map[string]any, variables map[string]any) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	nodeOutputs = make(map[string]map[string]any, len(ec.nodeOutputs))
	for k, v := range ec.nodeOutputs {
		nodeOutputs[k] = v
	}
	variables = make(map[string]any, len(ec.variables))
	for k, v := range ec.variables {
		variables[k] = v
	}
	return nodeOutputs, variables
}

// Recordings returns a copy of every RecordedIO captured so far, keyed by
// node id, suitable for persisting in a checkpoint.
func (ec *ExecutionContext) Recordings() map[string][]RecordedIO {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make(map[string][]RecordedIO, len(ec.recordings))
	for k, v := range ec.recordings {
		out[k] = append([]RecordedIO(nil), v...)
	}
	return out
}

// Restore replaces the node output cache, variables, and recorded I/O
// wholesale, used when resuming a run from a checkpoint.
func (ec *ExecutionContext) Restore(nodeOutputs map[string]map[string]any, variables map[string]any, recordings map[string][]RecordedIO) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if nodeOutputs == nil {
		nodeOutputs = map[string]map[string]any{}
	}
	if variables == nil {
		variables = map[string]any{}
	}
	if recordings == nil {
		recordings = map[string][]RecordedIO{}
	}
	ec.recordings = recordings
	ec.nodeOutputs = nodeOutputs
	ec.variables = variables
}

// Emit publishes an event through the context's streamer, if one was
// configured; otherwise it is a no-op that returns seq 0.
func (ec *ExecutionContext) Emit(ctx context.Context, eventType string, payload map[string]any, producerID string, metadata map[string]any) (int64, error) {
	ec.mu.RLock()
	streamer := ec.streamer
	ec.mu.RUnlock()
	if streamer == nil {
		return 0, nil
	}
	return streamer.Emit(ctx, eventType, payload, producerID, metadata)
}

// Resources returns the configured ResourceManager, or nil if none was
// supplied.
func (ec *ExecutionContext) Resources() ResourceManager {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.resources
}

// SubWorkflows returns the configured SubWorkflowExecutor, or nil if none
// was supplied.
func (ec *ExecutionContext) SubWorkflows() SubWorkflowExecutor {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.executor
}
