package models

// Tool names offered to the model.
const (
	ToolWebSearch       = "web_search"
	ToolImageGeneration = "image_generation"
)

type FunctionDeclaration struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ToolCall is a model request to invoke one named tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult correlates a tool output to its call by ID. Output is always a
// JSON document, either the tool payload or {"error": ...}.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     string `json:"output"`
	IsError    bool   `json:"is_error,omitempty"`
}
