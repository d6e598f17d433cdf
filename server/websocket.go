package server

import (
	"context"

	"github.com/Desarso/haochat/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleWebSocket upgrades the connection and relays turns until it closes.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := sessions.NewWebSocketSession(sessionID, c.GetString(userKey), conn, s.Engine)
	if err := session.Run(ctx); err != nil {
		s.Logger.Printf("WebSocket session %s ended: %v", sessionID, err)
		return
	}
	s.Logger.Printf("WebSocket session %s ended", sessionID)
}
