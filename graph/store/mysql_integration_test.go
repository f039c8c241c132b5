package store_test

// TestMySQLIntegration exercises MySQLStore against a real MySQL/MariaDB
// server, covering the suspend-then-resume scenario a production scheduler
// depends on.
//
// Prerequisites:
//   - MySQL server reachable (local, Docker, or cloud)
//   - TEST_MYSQL_DSN set, e.g. "user:pass@tcp(127.0.0.1:3306)/flowforge_test?parseTime=true"
//
// Run with:
//
//	export TEST_MYSQL_DSN="user:pass@tcp(127.0.0.1:3306)/flowforge_test?parseTime=true"
//	go test -run TestMySQLIntegration ./graph/store

import (
	"context"
	"testing"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/store"
)

func TestMySQLIntegration_SuspendThenResume(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("skipping MySQL integration test: TEST_MYSQL_DSN not set")
	}

	s, err := store.NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	run := "run-mysql-integration"

	suspended := graph.WorkflowState{
		RunID:       run,
		GraphID:     "approval-flow",
		Queue:       []string{graph.SuspendSentinel, "notify"},
		NodeOutputs: map[string]map[string]any{"request": {"amount": 500.0}},
		Variables:   map[string]any{"requester": "alice"},
		Status:      graph.StatusSuspended,
	}
	if err := s.SaveCheckpoint(ctx, suspended); err != nil {
		t.Fatalf("save suspended checkpoint: %v", err)
	}

	loaded, err := s.LoadCheckpoint(ctx, run)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != graph.StatusSuspended || len(loaded.Queue) != 2 {
		t.Fatalf("expected suspended checkpoint with pending queue, got %+v", loaded)
	}

	resumed := *loaded
	resumed.Queue = loaded.Queue[1:]
	resumed.Status = graph.StatusCompleted
	if err := s.SaveCheckpoint(ctx, resumed); err != nil {
		t.Fatalf("save resumed checkpoint: %v", err)
	}

	final, err := s.LoadCheckpoint(ctx, run)
	if err != nil {
		t.Fatalf("load resumed: %v", err)
	}
	if final.Status != graph.StatusCompleted || len(final.Queue) != 1 {
		t.Errorf("expected completed run with one node left in its queue, got %+v", final)
	}
}
