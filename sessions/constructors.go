package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/gorilla/websocket"
)

// HTTPSession runs turns for one conversation over HTTP.
type HTTPSession struct {
	Engine         *Engine
	ConversationID string
	Logger         *log.Logger
}

// NewHTTPSession creates a new HTTP session
func NewHTTPSession(conversationID string, engine *Engine) *HTTPSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[HTTP %s] ", conversationID), log.LstdFlags)

	return &HTTPSession{
		Engine:         engine,
		ConversationID: conversationID,
		Logger:         logger,
	}
}

// NewWebSocketSession creates a relay session for one connection.
func NewWebSocketSession(sessionID, userID string, conn *websocket.Conn, engine *Engine) *WebSocketSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	return &WebSocketSession{
		Engine:    engine,
		SessionID: sessionID,
		UserID:    userID,
		Conn:      conn,
		Writer:    writer,
		Logger:    logger,
	}
}
