package models

import "time"

// MessageRecord is the API shape of a persisted chat message.
type MessageRecord struct {
	ID             uint      `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	IsAI           bool      `json:"is_ai"`
	ImageURLs      []string  `json:"image_urls,omitempty"`
	TurnID         string    `json:"turn_id,omitempty"`
}

// ConversationRecord is the API shape of a conversation listing entry.
type ConversationRecord struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToolTraceRecord is the API shape of a recorded tool execution.
type ToolTraceRecord struct {
	TurnID     string    `json:"turn_id,omitempty"`
	ToolCallID string    `json:"tool_call_id"`
	Tool       string    `json:"tool"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
