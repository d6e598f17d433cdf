package models

// ChatResponse is returned by the buffered chat endpoint.
type ChatResponse struct {
	Message   MessageRecord `json:"message"`
	Title     string        `json:"title,omitempty"`
	ToolsUsed []string      `json:"tools_used,omitempty"`
}

// SearchResult is one entry returned by the search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps at most five search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ImageResponse is returned by the image-generation collaborator.
type ImageResponse struct {
	ImageURL      string `json:"imageUrl"`
	Prompt        string `json:"prompt"`
	Size          string `json:"size"`
	Quality       string `json:"quality"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}
