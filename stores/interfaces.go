package stores

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a conversation, message or turn does not exist.
var ErrNotFound = errors.New("record not found")

// Message is one persisted chat message. ImageURLs is stored as a JSON array
// in ImageURLsJSON.
type Message struct {
	gorm.Model
	ConversationID string   `gorm:"index;not null"`
	Content        string   `gorm:"type:text;not null"`
	IsAI           bool     `gorm:"not null;default:false"`
	TurnID         string   `gorm:"index"`
	ImageURLsJSON  string   `gorm:"type:text"`
	ImageURLs      []string `gorm:"-"`
}

// BeforeSave marshals ImageURLs to ImageURLsJSON
func (m *Message) BeforeSave(tx *gorm.DB) error {
	if len(m.ImageURLs) == 0 {
		m.ImageURLsJSON = ""
		return nil
	}
	data, err := json.Marshal(m.ImageURLs)
	if err != nil {
		return err
	}
	m.ImageURLsJSON = string(data)
	return nil
}

// AfterFind unmarshals ImageURLsJSON to ImageURLs
func (m *Message) AfterFind(tx *gorm.DB) error {
	if m.ImageURLsJSON != "" {
		return json.Unmarshal([]byte(m.ImageURLsJSON), &m.ImageURLs)
	}
	return nil
}

// Conversation holds metadata for a chat conversation
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index;not null"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// Feedback is a user's rating of one assistant message.
type Feedback struct {
	gorm.Model
	MessageID    uint   `gorm:"index;not null"`
	UserID       string `gorm:"index;not null"`
	FeedbackType string `gorm:"not null"`
	FeedbackText string `gorm:"type:text"`
}

// ConversationInfo holds basic conversation metadata for listing
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MessageStore interface for abstracting database operations
type MessageStore interface {
	// Message operations
	SaveMessage(msg *Message) error
	FetchHistory(conversationID string, limit int) ([]Message, error)
	GetMessage(id uint) (*Message, error)
	FindMessageByTurnID(turnID string) (*Message, error)

	// Conversation operations
	CreateConversation(convoID, userID string) error
	GetConversation(convoID string) (*Conversation, error)
	ListConversationsForUser(userID string) ([]ConversationInfo, error)
	UpdateConversationTitle(convoID, title string) error

	// Feedback
	SaveFeedback(fb *Feedback) error

	// Connection management
	Connect() error
	Close() error
	DB() *gorm.DB

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string `json:"type"`       // "sqlite", "postgres"
	Connection string `json:"connection"` // path or DSN
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
	}
}
