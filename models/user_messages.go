package models

// Attachment is file content already converted to text by the caller.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text"`
}

// HistoryMessage is one prior turn handed to the model.
type HistoryMessage struct {
	Content string `json:"content"`
	IsAI    bool   `json:"is_ai"`
}

// Role maps a history message onto a chat completion role.
func (m HistoryMessage) Role() string {
	if m.IsAI {
		return "assistant"
	}
	return "user"
}
