package sessions

import (
	"strings"
	"time"

	models "github.com/Desarso/haochat/models"
)

const defaultBasePrompt = "You are a helpful, knowledgeable assistant. Answer clearly and accurately, and format responses with markdown when it helps readability."

const (
	deepModeHint = "DEEP REASONING MODE: provide step-by-step analysis with multiple perspectives. Explain the reasoning behind your conclusions, not just the conclusions."
	fastModeHint = "FAST MODE: be helpful, accurate and concise."
	searchHint   = "Web search is available. Use the web_search tool for current events, prices, weather or anything that may have changed recently, and cite the links you used."
	imageHint    = "Use the image_generation tool when the user asks for a picture. The image is shown to the user automatically; do not include its URL in your reply."
)

// PromptBuilder assembles the system prompt for a turn.
type PromptBuilder interface {
	SystemPrompt(req models.ChatRequest, webSearch bool) string
}

// DefaultPrompt is a base prompt plus the current date and mode hints.
type DefaultPrompt struct {
	Base string
	Now  func() time.Time
}

func (p DefaultPrompt) SystemPrompt(req models.ChatRequest, webSearch bool) string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	base := p.Base
	if strings.TrimSpace(base) == "" {
		base = defaultBasePrompt
	}

	parts := []string{base, "Current date: " + now().Format("Monday, January 2, 2006") + "."}
	if req.DeepResearch {
		parts = append(parts, deepModeHint)
	} else {
		parts = append(parts, fastModeHint)
	}
	if webSearch {
		parts = append(parts, searchHint)
	}
	parts = append(parts, imageHint)
	return strings.Join(parts, "\n\n")
}
