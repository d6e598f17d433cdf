package server

import (
	"github.com/Desarso/haochat/streaming"
	"github.com/gin-gonic/gin"
)

// GinSSEWriter relays turn events as SSE frames of the form
// "data: <json>\n\n". Headers are sent with the first event so that
// errors detected before it can still be answered as plain JSON.
type GinSSEWriter struct {
	Context *gin.Context
	started bool
}

func (w *GinSSEWriter) WriteEvent(ev streaming.Event) error {
	if err := w.Context.Request.Context().Err(); err != nil {
		return err
	}
	if !w.started {
		w.Context.Header("Content-Type", "text/event-stream")
		w.Context.Header("Cache-Control", "no-cache")
		w.Context.Header("Connection", "keep-alive")
		w.Context.Header("X-Accel-Buffering", "no")
		w.started = true
	}
	w.Context.SSEvent("", ev)
	w.Context.Writer.Flush()
	return nil
}

// Started reports whether any event has been written.
func (w *GinSSEWriter) Started() bool {
	return w.started
}
