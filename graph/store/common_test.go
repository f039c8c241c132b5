package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/emit"
	"github.com/flowforge/flowforge-go/graph/store"
)

// checkpointEventStore is satisfied by every backend in this package;
// conformance tests run once per backend against this interface.
type checkpointEventStore interface {
	graph.CheckpointStore
	emit.EventStore
}

// runConformance exercises the contract every CheckpointStore/EventStore
// backend must satisfy, regardless of persistence medium.
func runConformance(t *testing.T, s checkpointEventStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing checkpoint returns ErrNotFound", func(t *testing.T) {
		if _, err := s.LoadCheckpoint(ctx, "no-such-run"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save then load roundtrips", func(t *testing.T) {
		state := graph.WorkflowState{
			RunID:       "run-1",
			GraphID:     "g1",
			Queue:       []string{"b", "c"},
			NodeOutputs: map[string]map[string]any{"a": {"x": 1.0}},
			Variables:   map[string]any{"count": 3.0},
			Recordings: map[string][]graph.RecordedIO{
				"a": {{NodeID: "a", Attempt: 0, Output: map[string]any{"x": 1.0}, Hash: "sha256:deadbeef"}},
			},
			Status: graph.StatusRunning,
			UpdatedAt:   time.Now().Truncate(time.Millisecond),
		}
		if err := s.SaveCheckpoint(ctx, state); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := s.LoadCheckpoint(ctx, "run-1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.GraphID != "g1" || len(loaded.Queue) != 2 || loaded.Queue[0] != "b" {
			t.Errorf("unexpected checkpoint: %+v", loaded)
		}
		if loaded.NodeOutputs["a"]["x"] != 1.0 {
			t.Errorf("expected node output preserved, got %+v", loaded.NodeOutputs)
		}
		if len(loaded.Recordings["a"]) != 1 || loaded.Recordings["a"][0].Hash != "sha256:deadbeef" {
			t.Errorf("expected recorded I/O preserved, got %+v", loaded.Recordings)
		}
	})

	t.Run("second save overwrites the first", func(t *testing.T) {
		run := "run-overwrite"
		if err := s.SaveCheckpoint(ctx, graph.WorkflowState{RunID: run, Status: graph.StatusRunning}); err != nil {
			t.Fatalf("save 1: %v", err)
		}
		if err := s.SaveCheckpoint(ctx, graph.WorkflowState{RunID: run, Status: graph.StatusSuspended}); err != nil {
			t.Fatalf("save 2: %v", err)
		}
		loaded, err := s.LoadCheckpoint(ctx, run)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.Status != graph.StatusSuspended {
			t.Errorf("expected overwritten status %q, got %q", graph.StatusSuspended, loaded.Status)
		}
	})

	t.Run("events retrieved in seq order after cursor", func(t *testing.T) {
		run := "run-events"
		for seq := int64(1); seq <= 3; seq++ {
			err := s.SaveEvent(ctx, emit.Event{
				ID:         "evt-" + run + "-" + time.Duration(seq).String(),
				RunID:      run,
				SeqID:      seq,
				Type:       "node_started",
				ProducerID: "nodeA",
				Timestamp:  time.Now(),
			})
			if err != nil {
				t.Fatalf("save event %d: %v", seq, err)
			}
		}

		events, err := s.GetEvents(ctx, run, 1)
		if err != nil {
			t.Fatalf("get events: %v", err)
		}
		if len(events) != 2 || events[0].SeqID != 2 || events[1].SeqID != 3 {
			t.Fatalf("expected seq ids [2 3], got %+v", events)
		}
	})

	t.Run("get events for unknown run returns empty", func(t *testing.T) {
		events, err := s.GetEvents(ctx, "never-seen", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
	})
}
