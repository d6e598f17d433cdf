package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/models/openai"
)

// classifierHistory is how many recent messages give the classifier context.
const classifierHistory = 5

const webSearchPrompt = `Decide whether answering the user's latest message requires a live web search for current or real-time information (news, weather, prices, scores, recent events). Reply with exactly "yes" or "no".`

// ModelClassifier asks a small model whether a web search is needed and
// falls back to the keyword heuristic on any failure. Tool detection for
// transport selection stays keyword based so it never costs a round trip.
type ModelClassifier struct {
	Completer openai.Completer
	Model     string
	Fallback  Classifier
	Logger    *log.Logger
}

func (m *ModelClassifier) fallback() Classifier {
	if m.Fallback != nil {
		return m.Fallback
	}
	return Keywords{}
}

func (m *ModelClassifier) NeedsTools(message string) bool {
	return m.fallback().NeedsTools(message)
}

func (m *ModelClassifier) NeedsWebSearch(ctx context.Context, message string, history []models.HistoryMessage) bool {
	keyword := m.fallback().NeedsWebSearch(ctx, message, history)
	if m.Completer == nil {
		return keyword
	}

	messages := []openai.Message{{Role: "system", Content: webSearchPrompt}}
	start := len(history) - classifierHistory
	if start < 0 {
		start = 0
	}
	for _, h := range history[start:] {
		messages = append(messages, openai.Message{Role: h.Role(), Content: h.Content})
	}
	messages = append(messages, openai.Message{Role: "user", Content: message})

	resp, err := m.Completer.Complete(ctx, openai.ChatCompletionRequest{
		Model:               m.Model,
		Messages:            messages,
		MaxCompletionTokens: openai.IntPtr(10),
		Temperature:         openai.FloatPtr(0),
	})
	if err != nil {
		m.logf("web search intent model failed, using keywords: %v", err)
		return keyword
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Text()))
	return strings.HasPrefix(answer, "yes") || keyword
}

func (m *ModelClassifier) logf(format string, args ...interface{}) {
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Output(2, fmt.Sprintf("[INTENT] "+format, args...))
}
