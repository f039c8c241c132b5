package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/emit"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed CheckpointStore and EventStore.
//
// Designed for development, single-process deployments, and prototyping
// before migrating to a distributed backend. Uses WAL mode so readers
// (e.g. an event-history API) never block the writer.
//
// Schema:
//   - workflow_checkpoints: one row per run, overwritten on every step
//   - workflow_events: append-only event log, unique on (run_id, seq_id)
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			run_id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			queue TEXT NOT NULL,
			node_outputs TEXT NOT NULL,
			variables TEXT NOT NULL,
			recordings TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workflow_events (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			producer_id TEXT NOT NULL,
			metadata TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			UNIQUE(run_id, seq_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_events_run_seq ON workflow_events(run_id, seq_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint upserts the snapshot for state.RunID.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, state graph.WorkflowState) error {
	queue, err := json.Marshal(state.Queue)
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	nodeOutputs, err := json.Marshal(state.NodeOutputs)
	if err != nil {
		return fmt.Errorf("marshal node outputs: %w", err)
	}
	variables, err := json.Marshal(state.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	recordings, err := json.Marshal(state.Recordings)
	if err != nil {
		return fmt.Errorf("marshal recordings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_checkpoints (run_id, graph_id, queue, node_outputs, variables, recordings, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			graph_id = excluded.graph_id,
			queue = excluded.queue,
			node_outputs = excluded.node_outputs,
			variables = excluded.variables,
			recordings = excluded.recordings,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, state.RunID, state.GraphID, string(queue), string(nodeOutputs), string(variables), string(recordings), string(state.Status), state.Error, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored snapshot for runID, or ErrNotFound.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, runID string) (*graph.WorkflowState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT graph_id, queue, node_outputs, variables, recordings, status, error, updated_at
		FROM workflow_checkpoints WHERE run_id = ?
	`, runID)

	var (
		graphID, queueJSON, outputsJSON, varsJSON, recordingsJSON, status, errMsg string
		updatedAt                                                                 time.Time
	)
	if err := row.Scan(&graphID, &queueJSON, &outputsJSON, &varsJSON, &recordingsJSON, &status, &errMsg, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	state := &graph.WorkflowState{
		RunID:     runID,
		GraphID:   graphID,
		Status:    graph.RunStatus(status),
		Error:     errMsg,
		UpdatedAt: updatedAt,
	}
	if err := json.Unmarshal([]byte(queueJSON), &state.Queue); err != nil {
		return nil, fmt.Errorf("unmarshal queue: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &state.NodeOutputs); err != nil {
		return nil, fmt.Errorf("unmarshal node outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(varsJSON), &state.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	if recordingsJSON != "" {
		if err := json.Unmarshal([]byte(recordingsJSON), &state.Recordings); err != nil {
			return nil, fmt.Errorf("unmarshal recordings: %w", err)
		}
	}
	return state, nil
}

// SaveEvent appends event to the log. Violates UNIQUE(run_id, seq_id) if
// the same sequence number is saved twice for a run.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event emit.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_events (id, run_id, seq_id, type, payload, producer_id, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.RunID, event.SeqID, event.Type, string(payload), event.ProducerID, string(metadata), event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvents returns every event recorded for runID with SeqID > afterSeq,
// in ascending SeqID order.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterSeq int64) ([]emit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq_id, type, payload, producer_id, metadata, timestamp
		FROM workflow_events WHERE run_id = ? AND seq_id > ? ORDER BY seq_id ASC
	`, runID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []emit.Event
	for rows.Next() {
		var (
			e                     emit.Event
			payloadJSON, metaJSON string
		)
		e.RunID = runID
		if err := rows.Scan(&e.ID, &e.SeqID, &e.Type, &payloadJSON, &e.ProducerID, &metaJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
