package emit

import "context"

// Sink receives every event a Streamer emits, for secondary observability
// purposes (logging, tracing, in-memory buffering for tests). Unlike a Bus
// subscriber, a Sink is push-driven and is expected to be cheap and
// non-blocking; anything that needs backpressure or replay should subscribe
// to the Bus directly instead.
//
// Implementations should be:
//   - Non-blocking: never slow down the run that produced the event.
//   - Thread-safe: Streamer.Emit calls it synchronously from each publishing
//     goroutine, and several may publish at once.
//   - Resilient: never panic back into the caller.
type Sink interface {
	// Emit delivers a single event.
	Emit(event Event)

	// EmitBatch delivers several events at once, preserving order.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events have been delivered.
	Flush(ctx context.Context) error
}
