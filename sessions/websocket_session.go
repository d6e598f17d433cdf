package sessions

import (
	"context"
	"errors"
	"log"

	"github.com/Desarso/haochat/inflight"
	"github.com/Desarso/haochat/intent"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/stores"
	"github.com/Desarso/haochat/streaming"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketSession relays chat turns over one websocket connection. Each
// inbound ChatRequest is one turn; turns on a connection run one at a time.
type WebSocketSession struct {
	Engine    *Engine
	SessionID string
	UserID    string
	Conn      *websocket.Conn
	Writer    *WebSocketWriter
	Logger    *log.Logger
}

// Run reads requests until the connection closes or ctx is done.
func (ws *WebSocketSession) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req models.ChatRequest
		if err := ws.Conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.Logger.Printf("Connection closed")
				return nil
			}
			return err
		}

		if err := ws.RunTurn(ctx, req); err != nil {
			ws.Logger.Printf("Turn failed: %v", err)
		}
	}
}

// RunTurn runs a single request, choosing the transport from its content.
func (ws *WebSocketSession) RunTurn(ctx context.Context, req models.ChatRequest) error {
	if err := validate(req); err != nil {
		return ws.Writer.WriteError(err.Error())
	}
	if err := ws.Engine.EnsureConversation(&req, ws.UserID); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return ws.Writer.WriteError("conversation not found")
		}
		ws.Writer.WriteError(ErrorText)
		return err
	}
	if req.TurnID == "" {
		req.TurnID = uuid.New().String()
	}

	session := NewHTTPSession(req.ConversationID, ws.Engine)
	session.Logger = ws.Logger
	ws.Writer.StartTurn()

	decision := intent.Decide(ws.Engine.Classifier, req.Message, intent.Flags{
		DeepResearch: req.DeepResearch,
		WebSearch:    req.AllowWebSearch,
	})
	ws.Logger.Printf("Turn %s on %s: %s", req.TurnID, req.ConversationID, decision)

	if decision == intent.Stream {
		_, err := session.RunStream(ctx, req, ws.Writer)
		return ws.report(err, true)
	}

	result, err := session.RunBuffered(ctx, req)
	if err != nil && result == nil {
		return ws.report(err, false)
	}
	if werr := ws.Writer.WriteEvent(streaming.Content(result.Message.Content)); werr != nil {
		return werr
	}
	if len(result.Message.ImageURLs) > 0 {
		if werr := ws.Writer.WriteImages(result.Message.ImageURLs); werr != nil {
			return werr
		}
	}
	if werr := ws.Writer.WriteEvent(streaming.Done(result.Title)); werr != nil {
		return werr
	}
	return err
}

// report sends err to the client unless the turn already surfaced it.
func (ws *WebSocketSession) report(err error, surfaced bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inflight.ErrBusy):
		return ws.Writer.WriteError("a response is already in progress for this conversation")
	case errors.Is(err, ErrEmptyMessage):
		return ws.Writer.WriteError(err.Error())
	case !surfaced:
		ws.Writer.WriteError(ErrorText)
	}
	return err
}
