package tool

import (
	"context"
	"fmt"

	"github.com/flowforge/flowforge-go/graph"
)

// Component adapts a Tool into a graph.Component: it invokes Tool.Call with
// the node's resolved inputs verbatim and returns whatever the tool
// returns, unwrapped, as the output bundle.
type Component struct {
	Tool Tool
}

// NewComponent wraps tool as a graph.Component.
func NewComponent(tool Tool) *Component {
	return &Component{Tool: tool}
}

// Invoke calls the underlying Tool with inputs as its parameter map.
func (c *Component) Invoke(ctx context.Context, inputs, _ map[string]any, _ *graph.ExecutionContext) (map[string]any, error) {
	out, err := c.Tool.Call(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", c.Tool.Name(), err)
	}
	return out, nil
}

// Registry builds a graph.MapRegistry keyed by each tool's Name(), suitable
// for handing to graph.Load alongside the engine's other built-in
// components.
func Registry(tools ...Tool) graph.MapRegistry {
	reg := make(graph.MapRegistry, len(tools))
	for _, t := range tools {
		reg[t.Name()] = NewComponent(t)
	}
	return reg
}
