package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userKey = "userID"

// ErrUnauthenticated is returned when a request carries no identity.
var ErrUnauthenticated = errors.New("unauthorized")

// Authenticator resolves the user behind a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts an identity header set by a fronting proxy.
// WebSocket clients that cannot set headers may pass user_id as a query
// parameter instead.
type HeaderAuthenticator struct {
	Header string
}

func (h HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := h.Header
	if header == "" {
		header = "X-User-ID"
	}
	if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(r.URL.Query().Get("user_id")); id != "" && websocketUpgrade(r) {
		return id, nil
	}
	return "", ErrUnauthenticated
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (s *Server) requireUser(c *gin.Context) {
	auth := s.Auth
	if auth == nil {
		auth = HeaderAuthenticator{}
	}
	userID, err := auth.Authenticate(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Set(userKey, userID)
	c.Next()
}
