package emit

import (
	"context"
	"testing"
)

func TestNullSink_DiscardsEverything(t *testing.T) {
	sink := NewNullSink()
	sink.Emit(Event{Type: "node_started"})
	if err := sink.EmitBatch(context.Background(), []Event{{Type: "node_completed"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
