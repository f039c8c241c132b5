package emit

import (
	"context"
	"sync"
	"testing"
)

type fakeEventStore struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeEventStore) SaveEvent(_ context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventStore) GetEvents(_ context.Context, runID string, afterSeq int64) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.events {
		if e.RunID == runID && e.SeqID > afterSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestStreamer_AssignsIncreasingSeqIDs(t *testing.T) {
	s := NewStreamer("run-1", nil, nil)

	seq1, err := s.Emit(context.Background(), "node_started", nil, "nodeA", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq2, err := s.Emit(context.Background(), "node_completed", nil, "nodeA", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq1 != 1 || seq2 != 2 {
		t.Errorf("expected seq ids 1, 2, got %d, %d", seq1, seq2)
	}
}

func TestStreamer_CriticalEventPersistsSynchronously(t *testing.T) {
	store := &fakeEventStore{}
	s := NewStreamer("run-1", nil, store)

	if _, err := s.Emit(context.Background(), "run_completed", nil, "run-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("expected critical event to be persisted before Emit returns, got %d saved", store.count())
	}
}

func TestStreamer_PublishesToBus(t *testing.T) {
	bus := NewBus(10, 0)
	s := NewStreamer("run-1", bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, unsubscribe := bus.Subscribe(ctx, "run-1")
	defer unsubscribe()

	if _, err := s.Emit(context.Background(), "node_started", map[string]any{"x": 1}, "nodeA", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := <-ch
	if event.Type != "node_started" || event.ProducerID != "nodeA" {
		t.Errorf("expected published event to match, got %+v", event)
	}
}

func TestStreamer_FansOutToSinks(t *testing.T) {
	sink := NewBufferedSink()
	s := NewStreamer("run-1", nil, nil, sink)

	if _, err := s.Emit(context.Background(), "node_started", nil, "nodeA", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.History("run-1")) != 1 {
		t.Errorf("expected event fanned out to sink")
	}
}
