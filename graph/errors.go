// Package graph provides the core workflow execution engine: a graph of
// addressable components, a sequential scheduler that walks it, and the
// supporting policy, timeout, metrics and cost-tracking machinery.
package graph

import "errors"

// ErrMaxStepsExceeded indicates that a run reached the maximum allowed step
// count without completing. This is the safety valve against a graph whose
// conditional routing never reaches a terminal state.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrUnknownNode is returned when an edge, entry point, or queued id refers
// to a node that is not present in the graph.
var ErrUnknownNode = errors.New("unknown node id")

// ErrNoEntryPoint is returned by Graph.Validate when a graph has no
// designated entry node.
var ErrNoEntryPoint = errors.New("graph has no entry point")

// ErrInvalidRetryPolicy is returned by RetryPolicy.Validate when the
// configured attempt count or delay bounds are not coherent.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// ErrRunNotFound is returned by Scheduler.Resume when the CheckpointStore
// reports no state (a nil WorkflowState with a nil error) for the requested
// run id. A store error is passed through unchanged instead; the graph/store
// backends report a missing run as store.ErrNotFound.
var ErrRunNotFound = errors.New("run not found")

// ErrAlreadyRunning is returned when Resume is called against a run whose
// last persisted status was not suspended, failed or completed (a run still
// marked running).
var ErrAlreadyRunning = errors.New("run is not in a resumable state")

// SchedulerError reports a failure raised by the scheduler itself, as
// opposed to a component's own error. It carries a machine-checkable Code
// alongside the human-readable Message.
type SchedulerError struct {
	Code    string
	Message string
	RunID   string
	NodeID  string
	Cause   error
}

func (e *SchedulerError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *SchedulerError) Unwrap() error { return e.Cause }
