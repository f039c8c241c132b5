package tool

import "context"

// Tool is an executable action an LLM can invoke: a web search, a database
// query, an API call. Implementations should validate input, respect
// context cancellation, and return structured output.
type Tool interface {
	// Name is the tool's unique identifier; it must match the name in the
	// ToolSpec offered to the LLM.
	Name() string

	// Call executes the tool with input matching its ToolSpec.Schema.
	// input may be nil for parameterless tools.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
