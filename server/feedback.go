package server

import (
	"errors"
	"net/http"
	"unicode/utf8"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/stores"
	"github.com/gin-gonic/gin"
)

const maxFeedbackText = 500

var feedbackTypes = map[string]bool{
	"helpful":      true,
	"not_helpful":  true,
	"too_detailed": true,
	"too_brief":    true,
	"off_topic":    true,
	"perfect":      true,
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageID == 0 || req.FeedbackType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message ID and feedback type are required"})
		return
	}
	if !feedbackTypes[req.FeedbackType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback type"})
		return
	}
	if utf8.RuneCountInString(req.FeedbackText) > maxFeedbackText {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Feedback text must be less than 500 characters"})
		return
	}

	userID := c.GetString(userKey)
	if s.Feedback != nil && !s.Feedback.Allow(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many feedback submissions. Please try again later."})
		return
	}

	msg, err := s.Store.GetMessage(req.MessageID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		s.storeError(c, err)
		return
	}
	if _, err := s.Engine.Authorize(msg.ConversationID, userID); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized to provide feedback for this message"})
			return
		}
		s.storeError(c, err)
		return
	}

	fb := &stores.Feedback{
		MessageID:    req.MessageID,
		UserID:       userID,
		FeedbackType: req.FeedbackType,
		FeedbackText: req.FeedbackText,
	}
	if err := s.Store.SaveFeedback(fb); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": fb.ID})
}
