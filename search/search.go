// Package search implements the web search collaborator. Searchers never
// fail hard: misconfiguration and upstream errors come back as a single
// synthetic "Search Error" result so the model can narrate the problem.
package search

import (
	"context"
	"log"
	"net/http"
	"strings"

	models "github.com/Desarso/haochat/models"
)

// MaxResults is the most results any backend returns.
const MaxResults = 5

// Searcher runs one web query.
type Searcher interface {
	Search(ctx context.Context, query string) models.SearchResponse
}

// ErrorResponse builds the degraded single-entry response.
func ErrorResponse(reason string) models.SearchResponse {
	return models.SearchResponse{Results: []models.SearchResult{{
		Title:   "Search Error",
		Link:    "",
		Snippet: reason,
	}}}
}

// IsErrorResponse reports whether resp is the degraded shape.
func IsErrorResponse(resp models.SearchResponse) bool {
	return len(resp.Results) == 1 && resp.Results[0].Title == "Search Error" && resp.Results[0].Link == ""
}

func limit(results []models.SearchResult) []models.SearchResult {
	if len(results) > MaxResults {
		return results[:MaxResults]
	}
	return results
}

// stripTags removes the highlight markup some providers put in snippets.
func stripTags(s string) string {
	for _, tag := range []string{"<strong>", "</strong>", "<b>", "</b>"} {
		s = strings.ReplaceAll(s, tag, "")
	}
	return strings.TrimSpace(s)
}

func clientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

func loggerOrDefault(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.Default()
}
