package stores

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormStore holds the queries shared by the SQLite and PostgreSQL stores.
type gormStore struct {
	db *gorm.DB
}

// gormConfig keeps gorm quiet except for slow queries and real errors.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) migrate() error {
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}, &Feedback{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *gormStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SaveMessage inserts msg and bumps the conversation's message count. An
// assistant message whose TurnID was already stored is not inserted twice;
// msg is filled from the existing row instead.
func (s *gormStore) SaveMessage(msg *Message) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if msg.ConversationID == "" {
		return fmt.Errorf("conversation id is required")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var convo Conversation
		if err := tx.Where("conversation_id = ?", msg.ConversationID).First(&convo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("conversation %s: %w", msg.ConversationID, ErrNotFound)
			}
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		if msg.IsAI && msg.TurnID != "" {
			var existing Message
			err := tx.Where("turn_id = ? AND is_ai = ?", msg.TurnID, true).First(&existing).Error
			if err == nil {
				log.Printf("[STORE] Turn %s already persisted as message %d", msg.TurnID, existing.ID)
				*msg = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check turn: %w", err)
			}
		}

		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}

		return tx.Model(&Conversation{}).
			Where("conversation_id = ?", msg.ConversationID).
			Update("message_count", gorm.Expr("message_count + ?", 1)).Error
	})
}

// FetchHistory returns the newest limit messages, oldest first. limit <= 0
// returns the whole conversation.
func (s *gormStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := s.db.Where("conversation_id = ?", conversationID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var msgs []Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *gormStore) GetMessage(id uint) (*Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var msg Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &msg, nil
}

// FindMessageByTurnID returns the assistant message stored for turnID.
func (s *gormStore) FindMessageByTurnID(turnID string) (*Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if turnID == "" {
		return nil, ErrNotFound
	}
	var msg Message
	if err := s.db.Where("turn_id = ? AND is_ai = ?", turnID, true).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find turn: %w", err)
	}
	return &msg, nil
}

func (s *gormStore) CreateConversation(convoID, userID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	convo := Conversation{ConversationID: convoID, UserID: userID}
	if err := s.db.Create(&convo).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (s *gormStore) GetConversation(convoID string) (*Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var convo Conversation
	if err := s.db.Where("conversation_id = ?", convoID).First(&convo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &convo, nil
}

// ListConversationsForUser returns the user's conversations, most recently
// updated first.
func (s *gormStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var convos []Conversation
	if err := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convos).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	infos := make([]ConversationInfo, 0, len(convos))
	for _, c := range convos {
		infos = append(infos, ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt,
			UpdatedAt:      c.UpdatedAt,
		})
	}
	return infos, nil
}

func (s *gormStore) UpdateConversationTitle(convoID, title string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	res := s.db.Model(&Conversation{}).Where("conversation_id = ?", convoID).Update("title", title)
	if res.Error != nil {
		return fmt.Errorf("failed to update title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveFeedback records fb, replacing the user's earlier feedback on the
// same message.
func (s *gormStore) SaveFeedback(fb *Feedback) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var existing Feedback
	err := s.db.Where("message_id = ? AND user_id = ?", fb.MessageID, fb.UserID).First(&existing).Error
	switch {
	case err == nil:
		existing.FeedbackType = fb.FeedbackType
		existing.FeedbackText = fb.FeedbackText
		if err := s.db.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update feedback: %w", err)
		}
		*fb = existing
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to look up feedback: %w", err)
	}
	if err := s.db.Create(fb).Error; err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}
