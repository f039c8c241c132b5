package emit

import "context"

// NullSink implements Sink by discarding every event. Useful for disabling
// secondary observability without changing call sites.
type NullSink struct{}

// NewNullSink creates a NullSink.
func NewNullSink() *NullSink { return &NullSink{} }

// Emit discards event.
func (n *NullSink) Emit(Event) {}

// EmitBatch discards events.
func (n *NullSink) EmitBatch(context.Context, []Event) error { return nil }

// Flush is a no-op.
func (n *NullSink) Flush(context.Context) error { return nil }
