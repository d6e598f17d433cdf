package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Desarso/haochat/images"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/search"
	"github.com/gin-gonic/gin"
)

// handleSearch answers GET ?q= and POST {query}. Backend failures are
// reported inside a 200 result set.
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if c.Request.Method == http.MethodPost {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		query = req.Query
	}
	query = strings.TrimSpace(query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	if s.Searcher == nil {
		c.JSON(http.StatusOK, search.ErrorResponse("Web search is not configured."))
		return
	}
	c.JSON(http.StatusOK, s.Searcher.Search(c.Request.Context(), query))
}

func (s *Server) handleImageGeneration(c *gin.Context) {
	var req models.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := images.Normalize(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), images.ErrInvalidRequest.Error()+": ")})
		return
	}
	if s.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image generation is not configured"})
		return
	}

	resp, err := s.Images.Generate(c.Request.Context(), req)
	switch {
	case errors.Is(err, images.ErrContentPolicy):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image generation failed: Content policy violation. Please try a different prompt."})
		return
	case err != nil:
		s.Logger.Printf("Image generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate image"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
