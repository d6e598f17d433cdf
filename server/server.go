// Package server exposes chat turns, collaborators and conversation data
// over HTTP and WebSocket.
package server

import (
	"log"
	"net/http"
	"os"

	"github.com/Desarso/haochat/images"
	"github.com/Desarso/haochat/ratelimit"
	"github.com/Desarso/haochat/search"
	"github.com/Desarso/haochat/sessions"
	"github.com/Desarso/haochat/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	Engine   *sessions.Engine
	Store    stores.MessageStore
	Traces   stores.TraceStore
	Searcher search.Searcher
	Images   images.Generator
	Feedback *ratelimit.Limiter
	Auth     Authenticator
	// ImageDir is served under /images when set.
	ImageDir string
	Logger   *log.Logger

	upgrader websocket.Upgrader
}

// New creates a server around engine. Search, images and traces are
// optional; the feedback limiter defaults to 10 submissions per 5 minutes.
func New(engine *sessions.Engine) *Server {
	return &Server{
		Engine:   engine,
		Store:    engine.Store,
		Feedback: ratelimit.New(ratelimit.DefaultFeedbackLimit, ratelimit.DefaultFeedbackWindow),
		Auth:     HeaderAuthenticator{},
		Logger:   log.New(os.Stdout, "[SERVER] ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	if s.ImageDir != "" {
		router.Static("/images", s.ImageDir)
	}

	api := router.Group("/api", s.requireUser)
	api.POST("/chat", s.handleChat)
	api.POST("/chat/stream", s.handleChatStream)
	api.GET("/turns/:turnID", s.handleTurn)

	api.GET("/search", s.handleSearch)
	api.POST("/search", s.handleSearch)
	api.POST("/image-generation", s.handleImageGeneration)

	api.POST("/conversations", s.handleCreateConversation)
	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations/:id/messages", s.handleConversationMessages)
	api.GET("/conversations/:id/traces", s.handleConversationTraces)

	api.POST("/profile/feedback", s.handleFeedback)

	router.GET("/ws/chat", s.requireUser, s.handleWebSocket)
	return router
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.Logger.Printf("Server starting on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.Store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
