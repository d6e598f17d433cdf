package stores

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Tool trace statuses.
const (
	TraceStatusOK    = "ok"
	TraceStatusError = "error"
)

// ToolTrace records one tool execution within a turn.
type ToolTrace struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	ConversationID string         `gorm:"index:idx_trace_conv;not null" json:"conversation_id"`
	TurnID         string         `gorm:"index" json:"turn_id,omitempty"`
	ToolCallID     string         `gorm:"index:idx_trace_conv;not null" json:"tool_call_id"`
	Tool           string         `gorm:"not null" json:"tool"`
	Status         string         `gorm:"not null" json:"status"` // ok, error
	Label          string         `json:"label"`
	DetailsJSON    string         `gorm:"type:text" json:"-"`
	Details        map[string]any `gorm:"-" json:"details,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
}

// BeforeSave marshals Details to DetailsJSON
func (t *ToolTrace) BeforeSave(tx *gorm.DB) error {
	if t.Details != nil {
		data, err := json.Marshal(t.Details)
		if err != nil {
			return err
		}
		t.DetailsJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals DetailsJSON to Details
func (t *ToolTrace) AfterFind(tx *gorm.DB) error {
	if t.DetailsJSON != "" {
		return json.Unmarshal([]byte(t.DetailsJSON), &t.Details)
	}
	return nil
}

// TraceStore persists tool execution traces.
type TraceStore interface {
	SaveTraces(traces []*ToolTrace) error
	GetTracesByConversation(conversationID string) ([]*ToolTrace, error)
}

// GORMTraceStore implements TraceStore for SQLite/PostgreSQL via GORM
type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM database connection
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(&ToolTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tool_traces table: %w", err)
	}
	return &GORMTraceStore{db: db}, nil
}

// SaveTraces saves multiple trace events in a batch
func (s *GORMTraceStore) SaveTraces(traces []*ToolTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(traces) == 0 {
		return nil
	}
	return s.db.CreateInBatches(traces, 100).Error
}

// GetTracesByConversation retrieves all traces for a conversation, oldest first
func (s *GORMTraceStore) GetTracesByConversation(conversationID string) ([]*ToolTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var traces []*ToolTrace
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&traces).Error

	return traces, err
}
