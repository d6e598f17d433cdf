package server

import (
	"net/http"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleCreateConversation(c *gin.Context) {
	userID := c.GetString(userKey)
	id := uuid.New().String()
	if err := s.Store.CreateConversation(id, userID); err != nil {
		s.storeError(c, err)
		return
	}
	convo, err := s.Store.GetConversation(id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ConversationRecord{
		ConversationID: convo.ConversationID,
		Title:          convo.Title,
		CreatedAt:      convo.CreatedAt,
		UpdatedAt:      convo.UpdatedAt,
	})
}

func (s *Server) handleListConversations(c *gin.Context) {
	infos, err := s.Store.ListConversationsForUser(c.GetString(userKey))
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]models.ConversationRecord, 0, len(infos))
	for _, info := range infos {
		out = append(out, models.ConversationRecord{
			ConversationID: info.ConversationID,
			Title:          info.Title,
			MessageCount:   info.MessageCount,
			CreatedAt:      info.CreatedAt,
			UpdatedAt:      info.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (s *Server) handleConversationMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Engine.Authorize(id, c.GetString(userKey)); err != nil {
		s.storeError(c, err)
		return
	}
	msgs, err := s.Store.FetchHistory(id, 0)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]models.MessageRecord, 0, len(msgs))
	for i := range msgs {
		out = append(out, sessions.Record(&msgs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (s *Server) handleConversationTraces(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Engine.Authorize(id, c.GetString(userKey)); err != nil {
		s.storeError(c, err)
		return
	}
	if s.Traces == nil {
		c.JSON(http.StatusOK, gin.H{"traces": []models.ToolTraceRecord{}})
		return
	}
	traces, err := s.Traces.GetTracesByConversation(id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]models.ToolTraceRecord, 0, len(traces))
	for _, t := range traces {
		out = append(out, models.ToolTraceRecord{
			TurnID:     t.TurnID,
			ToolCallID: t.ToolCallID,
			Tool:       t.Tool,
			Status:     t.Status,
			Detail:     t.Label,
			DurationMS: t.DurationMS,
			CreatedAt:  t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"traces": out})
}
