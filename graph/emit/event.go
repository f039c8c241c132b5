// Package emit is the workflow event system: a typed envelope, an in-memory
// pub/sub bus with bounded backfill, and a handful of secondary
// observability sinks (log, OpenTelemetry, in-memory buffer) layered on top
// of the bus rather than replacing it.
package emit

import "time"

// Event is the canonical envelope every workflow occurrence is wrapped in,
// whether it crosses the bus, lands in a durable store, or is rendered by a
// secondary sink.
type Event struct {
	// ID uniquely identifies this event, independent of its run or sequence
	// position (e.g. a UUID).
	ID string

	// RunID identifies the workflow execution this event belongs to.
	RunID string

	// SeqID is this event's position within its run's stream, assigned by
	// the Streamer in strictly increasing order starting at 1.
	SeqID int64

	// Type names what happened: "node_started", "node_finished",
	// "node_error", "run_suspended", "workflow_completed",
	// "workflow_failed", or a component-defined type. Lifecycle types
	// ending in one of _started/_completed/_finished/_failed/_succeeded/
	// _ended are "critical" and persisted synchronously; everything else
	// is fire-and-forget.
	Type string

	// Payload carries the type-specific event data.
	Payload map[string]any

	// ProducerID identifies what produced the event: a node id for
	// node-scoped events, or the run id itself for run-level events.
	ProducerID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Metadata carries out-of-band annotations (trace id, request id) that
	// are not part of Payload.
	Metadata map[string]any
}

var criticalSuffixes = []string{"_started", "_completed", "_finished", "_failed", "_succeeded", "_ended"}

// IsCritical reports whether e.Type's lifecycle suffix marks it for
// synchronous, durable persistence rather than best-effort delivery.
func (e Event) IsCritical() bool {
	for _, suffix := range criticalSuffixes {
		if len(e.Type) >= len(suffix) && e.Type[len(e.Type)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
