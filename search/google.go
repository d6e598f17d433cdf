package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	models "github.com/Desarso/haochat/models"
)

const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// Google searches through the Custom Search JSON API.
type Google struct {
	APIKey     string
	EngineID   string
	Endpoint   string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *Google) Search(ctx context.Context, query string) models.SearchResponse {
	if query == "" {
		return ErrorResponse("Search query is required")
	}
	if g.APIKey == "" || g.EngineID == "" {
		loggerOrDefault(g.Logger).Printf("[SEARCH] Google search is not configured")
		return ErrorResponse("Search is not configured. Please set GOOGLE_API_KEY and GOOGLE_CSE_ID.")
	}

	results, err := g.search(ctx, query)
	if err != nil {
		loggerOrDefault(g.Logger).Printf("[SEARCH] Google search failed: %v", err)
		return ErrorResponse("Search failed: " + err.Error())
	}
	return models.SearchResponse{Results: results}
}

func (g *Google) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = GoogleEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	q := req.URL.Query()
	q.Add("key", g.APIKey)
	q.Add("cx", g.EngineID)
	q.Add("q", query)
	q.Add("num", strconv.Itoa(MaxResults))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := clientOrDefault(g.HTTPClient).Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to Google Custom Search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Custom Search request failed with status %d", resp.StatusCode)
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshalling Google Custom Search response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, models.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: stripTags(item.Snippet),
		})
	}
	return limit(results), nil
}
