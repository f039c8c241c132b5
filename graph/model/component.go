package model

import (
	"context"
	"fmt"

	"github.com/flowforge/flowforge-go/graph"
)

// Component adapts a ChatModel into a graph.Component, the built-in LLM
// node for workflow graphs.
//
// Inputs:
//   - "messages": []any of {"role": string, "content": string} maps
//   - "tools": optional []any of {"name", "description", "schema"} maps
//
// Config: not read. The model is the one the underlying ChatModel was
// built with.
//
// Output bundle: "text", "tool_calls", "usage".
type Component struct {
	Model   ChatModel
	Costs   *graph.CostTracker
	ModelID string
}

// NewComponent wraps model as a graph.Component. modelID identifies the
// model for cost tracking (e.g. "claude-sonnet-4-5-20250929"); costs may be
// nil to skip cost accounting.
func NewComponent(model ChatModel, modelID string, costs *graph.CostTracker) *Component {
	return &Component{Model: model, Costs: costs, ModelID: modelID}
}

// Invoke resolves messages/tools from inputs, calls the underlying
// ChatModel, and records token usage against Costs if configured.
func (c *Component) Invoke(ctx context.Context, inputs, _ map[string]any, execCtx *graph.ExecutionContext) (map[string]any, error) {
	messages, err := parseMessages(inputs["messages"])
	if err != nil {
		return nil, fmt.Errorf("llm component: %w", err)
	}
	tools := parseTools(inputs["tools"])

	out, err := c.Model.Chat(ctx, messages, tools)
	if err != nil {
		return nil, fmt.Errorf("llm component: chat: %w", err)
	}

	if c.Costs != nil {
		if err := c.Costs.RecordLLMCall(c.ModelID, out.Usage.InputTokens, out.Usage.OutputTokens, ""); err != nil {
			return nil, fmt.Errorf("llm component: record cost: %w", err)
		}
	}

	toolCalls := make([]map[string]any, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		toolCalls = append(toolCalls, map[string]any{"name": tc.Name, "input": tc.Input})
	}

	return map[string]any{
		"text":       out.Text,
		"tool_calls": toolCalls,
		"usage": map[string]any{
			"input_tokens":  out.Usage.InputTokens,
			"output_tokens": out.Usage.OutputTokens,
		},
	}, nil
}

func parseMessages(raw any) ([]Message, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected \"messages\" to be a list, got %T", raw)
	}

	messages := make([]Message, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("message %d: expected an object, got %T", i, item)
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		messages = append(messages, Message{Role: role, Content: content})
	}
	return messages, nil
}

func parseTools(raw any) []ToolSpec {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	tools := make([]ToolSpec, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		description, _ := m["description"].(string)
		schema, _ := m["schema"].(map[string]any)
		tools = append(tools, ToolSpec{Name: name, Description: description, Schema: schema})
	}
	return tools
}
