package tool_test

import (
	"context"
	"testing"

	"github.com/flowforge/flowforge-go/graph/tool"
)

func TestComponent_InvokeDelegatesToTool(t *testing.T) {
	mock := &tool.MockTool{ToolName: "echo", Responses: []map[string]interface{}{{"ok": true}}}
	comp := tool.NewComponent(mock)

	out, err := comp.Invoke(context.Background(), map[string]any{"x": 1}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["ok"] != true {
		t.Errorf("expected ok=true, got %+v", out)
	}
}

func TestComponent_InvokeWrapsToolError(t *testing.T) {
	mock := &tool.MockTool{ToolName: "failing", Err: errBoom}
	comp := tool.NewComponent(mock)

	if _, err := comp.Invoke(context.Background(), nil, nil, nil); err == nil {
		t.Fatal("expected wrapped tool error")
	}
}

func TestRegistry_KeysByToolName(t *testing.T) {
	reg := tool.Registry(
		&tool.MockTool{ToolName: "a"},
		&tool.MockTool{ToolName: "b"},
	)
	if _, ok := reg.Resolve("a"); !ok {
		t.Error("expected tool 'a' registered")
	}
	if _, ok := reg.Resolve("b"); !ok {
		t.Error("expected tool 'b' registered")
	}
	if _, ok := reg.Resolve("c"); ok {
		t.Error("expected tool 'c' absent")
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
