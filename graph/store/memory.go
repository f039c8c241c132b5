package store

import (
	"context"
	"sync"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/emit"
)

// MemoryStore is an in-memory CheckpointStore and EventStore.
//
// It is thread-safe and suited to testing, development, and single-process
// workflows where persistence across restarts is not required. Data is
// lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]graph.WorkflowState
	events      map[string][]emit.Event // runID -> events ordered by SeqID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]graph.WorkflowState),
		events:      make(map[string][]emit.Event),
	}
}

// SaveCheckpoint overwrites the stored snapshot for state.RunID.
func (m *MemoryStore) SaveCheckpoint(_ context.Context, state graph.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints[state.RunID] = state
	return nil
}

// LoadCheckpoint returns the most recently saved snapshot for runID.
//
// Returns ErrNotFound if no checkpoint has been saved for that run.
func (m *MemoryStore) LoadCheckpoint(_ context.Context, runID string) (*graph.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.checkpoints[runID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := state
	return &cp, nil
}

// SaveEvent appends event to its run's log. Events are expected to arrive
// in SeqID order, as Streamer guarantees for a single run.
func (m *MemoryStore) SaveEvent(_ context.Context, event emit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[event.RunID] = append(m.events[event.RunID], event)
	return nil
}

// GetEvents returns every event recorded for runID with SeqID > afterSeq,
// in ascending SeqID order.
func (m *MemoryStore) GetEvents(_ context.Context, runID string, afterSeq int64) ([]emit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.events[runID]
	out := make([]emit.Event, 0, len(all))
	for _, e := range all {
		if e.SeqID > afterSeq {
			out = append(out, e)
		}
	}
	return out, nil
}
