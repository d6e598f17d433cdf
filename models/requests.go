package models

// ChatRequest is the body accepted by both chat endpoints and the websocket relay.
type ChatRequest struct {
	Message                    string       `json:"message"`
	ConversationID             string       `json:"conversation_id"`
	TurnID                     string       `json:"turn_id,omitempty"`
	DeepResearch               bool         `json:"deep_research,omitempty"`
	AllowWebSearch             bool         `json:"allow_web_search,omitempty"`
	EnableAIWebSearchDetection bool         `json:"enable_ai_web_search_detection,omitempty"`
	GenerateTitle              bool         `json:"generate_title,omitempty"`
	Attachments                []Attachment `json:"attachments,omitempty"`
}

// SearchRequest is the body of the search collaborator endpoint.
type SearchRequest struct {
	Query string `json:"query"`
}

// ImageRequest is the body of the image-generation collaborator endpoint.
type ImageRequest struct {
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// FeedbackRequest is the body of the feedback endpoint.
type FeedbackRequest struct {
	MessageID    uint   `json:"message_id"`
	FeedbackType string `json:"feedback_type"`
	FeedbackText string `json:"feedback_text,omitempty"`
}
