package openai

import (
	"fmt"

	models "github.com/Desarso/haochat/models"
)

// ChatCompletionRequest is the body of POST /chat/completions.
type ChatCompletionRequest struct {
	Model               string      `json:"model"`
	Messages            []Message   `json:"messages"`
	Tools               []Tool      `json:"tools,omitempty"`
	ToolChoice          interface{} `json:"tool_choice,omitempty"`
	Stream              bool        `json:"stream,omitempty"`
	MaxCompletionTokens *int        `json:"max_completion_tokens,omitempty"`
	Temperature         *float64    `json:"temperature,omitempty"`
	ReasoningEffort     string      `json:"reasoning_effort,omitempty"` // minimal, low, medium, high
	Verbosity           string      `json:"verbosity,omitempty"`        // low, medium, high
}

type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters"`
}

type ToolCall struct {
	Index    *int             `json:"index,omitempty"`
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      Message  `json:"message"`
	Delta        *Message `json:"delta,omitempty"`
	FinishReason *string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one chat.completion.chunk payload.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type ErrorResponse struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Param   interface{} `json:"param,omitempty"`
	Code    interface{} `json:"code,omitempty"`
}

// APIError is returned for any non-200 upstream response.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("OpenAI API error: %s (type: %s, status: %d)", e.Message, e.Type, e.StatusCode)
	}
	return fmt.Sprintf("OpenAI API error: status %d: %s", e.StatusCode, e.Message)
}

// Text returns the first choice's message content.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// AssistantMessage returns the first choice's message, used to replay the
// tool-call turn in a follow-up request.
func (r *ChatCompletionResponse) AssistantMessage() Message {
	if r == nil || len(r.Choices) == 0 {
		return Message{Role: "assistant"}
	}
	msg := r.Choices[0].Message
	if msg.Role == "" {
		msg.Role = "assistant"
	}
	return msg
}

// ToolCalls converts the first choice's function calls into domain tool calls.
func (r *ChatCompletionResponse) ToolCalls() []models.ToolCall {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	var calls []models.ToolCall
	for _, tc := range r.Choices[0].Message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		calls = append(calls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}

type sanitizedParameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ConvertTool maps a declaration onto the function-tool wire shape. Nil
// properties and required lists are sent as empty values.
func ConvertTool(fd models.FunctionDeclaration) Tool {
	params := sanitizedParameters{
		Type:       fd.Parameters.Type,
		Properties: fd.Parameters.Properties,
		Required:   fd.Parameters.Required,
	}
	if params.Properties == nil {
		params.Properties = make(map[string]interface{})
	}
	if params.Required == nil {
		params.Required = []string{}
	}
	if params.Type == "" {
		params.Type = "object"
	}

	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  params,
		},
	}
}

func ConvertTools(fds []models.FunctionDeclaration) []Tool {
	if len(fds) == 0 {
		return nil
	}
	tools := make([]Tool, len(fds))
	for i, fd := range fds {
		tools[i] = ConvertTool(fd)
	}
	return tools
}

// IntPtr and FloatPtr build optional numeric request fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
