package graph

import (
	"context"
	"fmt"
)

// Reserved keys a component may set in its output bundle to steer the
// scheduler instead of (or in addition to) producing ordinary data.
const (
	// ActiveHandleKey names the outgoing handle a conditional component
	// chose, restricting which of its out-edges fire.
	ActiveHandleKey = "_active_handle"

	// ControlSignalKey carries a ControlBreak/ControlContinue instruction
	// from a component running inside a loop body.
	ControlSignalKey = "_control_signal"
)

// Control signal values a component may place under ControlSignalKey.
const (
	ControlBreak    = "BREAK"
	ControlContinue = "CONTINUE"
)

// SuspendSentinel is a reserved node id. When the scheduler pops it from the
// execution queue, the run is parked rather than advanced: the queue (with
// the sentinel already removed) and the accumulated node outputs are
// checkpointed as status "suspended" and Run returns without error.
const SuspendSentinel = "__SUSPEND__"

// Component is a stateless, addressable unit of workflow behavior. Invoke is
// called once per visit with the node's resolved inputs (already run
// through the value resolver), its static configuration, and the run's
// execution context. It returns the node's output bundle, which becomes
// available to every downstream node as NodeOutputs[nodeID].
//
// Invoke must not retain ctx or execCtx beyond the call. No key of the
// output bundle suspends a run: the scheduler parks a run only when it pops
// SuspendSentinel from the execution queue.
type Component interface {
	Invoke(ctx context.Context, inputs, config map[string]any, execCtx *ExecutionContext) (map[string]any, error)
}

// ComponentFunc adapts a plain function to the Component interface, mirroring
// http.HandlerFunc.
type ComponentFunc func(ctx context.Context, inputs, config map[string]any, execCtx *ExecutionContext) (map[string]any, error)

// Invoke calls f.
func (f ComponentFunc) Invoke(ctx context.Context, inputs, config map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
	return f(ctx, inputs, config, execCtx)
}

// ComponentError reports a failure raised by a specific node's component
// during Invoke, distinguishing it from scheduler-level failures.
type ComponentError struct {
	NodeID string
	Cause  error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Cause)
}

func (e *ComponentError) Unwrap() error { return e.Cause }
