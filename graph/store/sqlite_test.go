package store_test

import (
	"path/filepath"
	"testing"

	"github.com/flowforge/flowforge-go/graph/store"
)

func TestSQLiteStore_Conformance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowforge-test.db")
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	runConformance(t, s)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	runConformance(t, s)
}
