package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/emit"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed CheckpointStore and EventStore.
//
// Designed for production deployments where runs must survive process
// restarts and be resumable from any worker. Connection pooling and
// explicit timeouts make it safe to share across a fleet of schedulers.
//
// Security: never hardcode the DSN. Read it from the environment, e.g.
//
//	store, err := store.NewMySQLStore(os.Getenv("FLOWFORGE_MYSQL_DSN"))
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn and creates the
// required tables if they don't already exist.
//
// DSN format: [user[:password]@][proto[(addr)]]/dbname[?params]
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			run_id VARCHAR(255) PRIMARY KEY,
			graph_id VARCHAR(255) NOT NULL,
			queue JSON NOT NULL,
			node_outputs JSON NOT NULL,
			variables JSON NOT NULL,
			recordings JSON NOT NULL,
			status VARCHAR(32) NOT NULL,
			error TEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workflow_events (
			id VARCHAR(255) PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			seq_id BIGINT NOT NULL,
			type VARCHAR(128) NOT NULL,
			payload JSON NOT NULL,
			producer_id VARCHAR(255) NOT NULL,
			metadata JSON NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			UNIQUE KEY uniq_run_seq (run_id, seq_id),
			KEY idx_run_seq (run_id, seq_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint upserts the snapshot for state.RunID.
func (s *MySQLStore) SaveCheckpoint(ctx context.Context, state graph.WorkflowState) error {
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
		ON DUPLICATE KEY UPDATE
			graph_id = VALUES(graph_id),
			queue = VALUES(queue),
			node_outputs = VALUES(node_outputs),
			variables = VALUES(variables),
			recordings = VALUES(recordings),
			status = VALUES(status),
			error = VALUES(error),
			updated_at = VALUES(updated_at)
	`, state.RunID, state.GraphID, string(queue), string(nodeOutputs), string(variables), string(recordings), string(state.Status), state.Error, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored snapshot for runID, or ErrNotFound.
func (s *MySQLStore) LoadCheckpoint(ctx context.Context, runID string) (*graph.WorkflowState, error) {
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

// SaveEvent appends event to the log.
func (s *MySQLStore) SaveEvent(ctx context.Context, event emit.Event) error {
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
func (s *MySQLStore) GetEvents(ctx context.Context, runID string, afterSeq int64) ([]emit.Event, error) {
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
