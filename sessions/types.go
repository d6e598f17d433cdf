package sessions

import (
	"errors"
	"log"
	"sync"
	"time"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/streaming"
	"github.com/gorilla/websocket"
)

// User-facing texts for turns that could not produce an answer.
const (
	ErrorText   = "Sorry, I encountered an error processing your message. Please try again."
	TimeoutText = "Request timed out after 4 minutes. Please try again."
)

var (
	// ErrEmptyMessage is returned for a request with no text and no attachments.
	ErrEmptyMessage = errors.New("message is required")
	// ErrNoContent is returned when the upstream stream ended without any text.
	ErrNoContent = errors.New("stream produced no content")
)

// EventSink receives the outbound events of one turn.
type EventSink interface {
	WriteEvent(ev streaming.Event) error
}

// Result is the outcome of one turn.
type Result struct {
	Message   models.MessageRecord
	Title     string
	ToolsUsed []string
	Persisted bool
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenTime   *time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

// WriteEvent sends ev as one JSON frame.
func (w *WebSocketWriter) WriteEvent(ev streaming.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Track time to first token
	if ev.Type == streaming.EventContent && !w.FirstTokenLogged && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstTokenTime = &now
		w.Logger.Printf("Time to first token: %v", now.Sub(w.StartTime))
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(ev)
}

func (w *WebSocketWriter) WriteImages(urls []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]interface{}{"type": "images", "image_urls": urls})
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "error", "error": message})
}

// StartTurn resets first-token tracking.
func (w *WebSocketWriter) StartTurn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.StartTime = time.Now()
	w.FirstTokenTime = nil
	w.FirstTokenLogged = false
}
