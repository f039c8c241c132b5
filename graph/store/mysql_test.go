package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/flowforge/flowforge-go/graph"
	"github.com/flowforge/flowforge-go/graph/store"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	return os.Getenv("TEST_MYSQL_DSN")
}

func TestMySQLStore_Conformance(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("skipping MySQL tests: TEST_MYSQL_DSN not set")
	}

	s, err := store.NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer s.Close()

	runConformance(t, s)
}

func TestMySQLStore_RejectsUnreachableDSN(t *testing.T) {
	if _, err := store.NewMySQLStore("nouser:nopass@tcp(127.0.0.1:1)/nodb"); err == nil {
		t.Fatal("expected error connecting to an unreachable MySQL server")
	}
}

func TestMySQLStore_SaveCheckpointUpdatesTimestamp(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("skipping MySQL tests: TEST_MYSQL_DSN not set")
	}

	s, err := store.NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	run := "run-mysql-ts"
	first := time.Now().Add(-time.Hour).Truncate(time.Second)
	second := time.Now().Truncate(time.Second)

	if err := s.SaveCheckpoint(ctx, graph.WorkflowState{RunID: run, Status: graph.StatusRunning, UpdatedAt: first}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := s.SaveCheckpoint(ctx, graph.WorkflowState{RunID: run, Status: graph.StatusCompleted, UpdatedAt: second}); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	loaded, err := s.LoadCheckpoint(ctx, run)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.UpdatedAt.Equal(second) {
		t.Errorf("expected updated_at %v, got %v", second, loaded.UpdatedAt)
	}
}
