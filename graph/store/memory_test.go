package store_test

import (
	"testing"

	"github.com/flowforge/flowforge-go/graph/store"
)

func TestMemoryStore_Conformance(t *testing.T) {
	runConformance(t, store.NewMemoryStore())
}
