package emit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventStore durably persists events keyed by (run_id, seq_id), the
// source-of-truth record that outlives the Bus's bounded ring buffer.
type EventStore interface {
	SaveEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, runID string, afterSeq int64) ([]Event, error)
}

// Streamer is the per-run facade a Scheduler uses to publish events: it
// assigns strictly increasing sequence numbers, fans events out to the Bus
// and any secondary Sinks, and enforces the criticality policy deciding
// whether an event is persisted synchronously or fire-and-forget.
//
// A Streamer satisfies graph.EventEmitter structurally (same Emit
// signature) without this package importing graph, keeping the dependency
// direction one-way.
type Streamer struct {
	runID string
	bus   *Bus
	store EventStore
	sinks []Sink

	mu  sync.Mutex
	seq int64
}

// NewStreamer builds a Streamer for one run. bus, store, and sinks may each
// be nil/empty; a Streamer with none of them configured is a harmless no-op
// sequence counter.
func NewStreamer(runID string, bus *Bus, store EventStore, sinks ...Sink) *Streamer {
	return &Streamer{runID: runID, bus: bus, store: store, sinks: sinks}
}

// Emit assigns the next sequence number, publishes to the bus and sinks, and
// — for critical lifecycle events (see Event.IsCritical) — persists to the
// store synchronously, returning any persistence error to the caller so a
// run can fail loudly rather than silently lose its own completion record.
// Non-critical events are persisted best-effort in the background.
func (s *Streamer) Emit(ctx context.Context, eventType string, payload map[string]any, producerID string, metadata map[string]any) (int64, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	event := Event{
		ID:         uuid.NewString(),
		RunID:      s.runID,
		SeqID:      seq,
		Type:       eventType,
		Payload:    payload,
		ProducerID: producerID,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}

	s.bus.Publish(event)
	for _, sink := range s.sinks {
		sink.Emit(event)
	}

	if s.store == nil {
		return seq, nil
	}
	if event.IsCritical() {
		return seq, s.store.SaveEvent(ctx, event)
	}
	go func() {
		// Detached from ctx: a fire-and-forget event must not be lost just
		// because the caller's request context ended first.
		_ = s.store.SaveEvent(context.Background(), event)
	}()
	return seq, nil
}
