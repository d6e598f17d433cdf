package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Desarso/haochat/inflight"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/sessions"
	"github.com/Desarso/haochat/stores"
	"github.com/gin-gonic/gin"
)

// bindChat decodes and validates a chat request and resolves its
// conversation. It answers the request itself and returns false on failure.
func (s *Server) bindChat(c *gin.Context) (models.ChatRequest, bool) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": sessions.ErrEmptyMessage.Error()})
		return req, false
	}
	if err := s.Engine.EnsureConversation(&req, c.GetString(userKey)); err != nil {
		s.storeError(c, err)
		return req, false
	}
	return req, true
}

// handleChat runs a buffered, tool-capable turn.
func (s *Server) handleChat(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}

	session := sessions.NewHTTPSession(req.ConversationID, s.Engine)
	result, err := session.RunBuffered(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, inflight.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "A response is already in progress for this conversation"})
		case errors.Is(err, sessions.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case result != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Message.Content})
		default:
			s.Logger.Printf("Chat turn failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": sessions.ErrorText})
		}
		return
	}

	c.JSON(http.StatusOK, models.ChatResponse{
		Message:   result.Message,
		Title:     result.Title,
		ToolsUsed: result.ToolsUsed,
	})
}

// handleChatStream runs a streaming turn and relays it as SSE.
func (s *Server) handleChatStream(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}

	session := sessions.NewHTTPSession(req.ConversationID, s.Engine)
	writer := &GinSSEWriter{Context: c}
	if _, err := session.RunStream(c.Request.Context(), req, writer); err != nil && !writer.Started() {
		switch {
		case errors.Is(err, inflight.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "A response is already in progress for this conversation"})
		case errors.Is(err, sessions.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": sessions.ErrorText})
		}
	}
}

// handleTurn returns the persisted assistant message of a turn.
func (s *Server) handleTurn(c *gin.Context) {
	msg, err := s.Store.FindMessageByTurnID(c.Param("turnID"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	if _, err := s.Engine.Authorize(msg.ConversationID, c.GetString(userKey)); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions.Record(msg))
}

// storeError maps store failures onto HTTP answers.
func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	s.Logger.Printf("Store error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
