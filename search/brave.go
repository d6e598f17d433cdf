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

const BraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave searches through the Brave Search API.
type Brave struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string) models.SearchResponse {
	if query == "" {
		return ErrorResponse("Search query is required")
	}
	if b.APIKey == "" {
		loggerOrDefault(b.Logger).Printf("[SEARCH] Brave search is not configured")
		return ErrorResponse("Search is not configured. Please set BRAVE_API_KEY.")
	}

	results, err := b.search(ctx, query)
	if err != nil {
		loggerOrDefault(b.Logger).Printf("[SEARCH] Brave search failed: %v", err)
		return ErrorResponse("Search failed: " + err.Error())
	}
	return models.SearchResponse{Results: results}
}

func (b *Brave) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = BraveEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	q := req.URL.Query()
	q.Add("q", query)
	q.Add("count", strconv.Itoa(MaxResults))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := clientOrDefault(b.HTTPClient).Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to Brave Search API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave Search API request failed with status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshalling Brave Search API response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, models.SearchResult{
			Title:   stripTags(r.Title),
			Link:    r.URL,
			Snippet: stripTags(r.Description),
		})
	}
	return limit(results), nil
}
