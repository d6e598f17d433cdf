package sessions

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/Desarso/haochat/models/openai"
)

const (
	DefaultTitleModel = "gpt-4o-mini"
	maxTitleLength    = 50
	titlePrompt       = "Generate a brief 3-5 word title for this conversation based on the user's message. Respond with ONLY the title text, no quotes, no extra formatting."
)

// TitleGenerator names a conversation from its first message.
type TitleGenerator struct {
	Completer openai.Completer
	Model     string
	Logger    *log.Logger
}

func NewTitleGenerator(completer openai.Completer, model string) *TitleGenerator {
	if model == "" {
		model = DefaultTitleModel
	}
	return &TitleGenerator{
		Completer: completer,
		Model:     model,
		Logger:    log.New(os.Stdout, "[TITLE] ", log.LstdFlags),
	}
}

// Generate returns a short title, or "" when the model fails or the answer
// is unusable.
func (g *TitleGenerator) Generate(ctx context.Context, message string) string {
	resp, err := g.Completer.Complete(ctx, openai.ChatCompletionRequest{
		Model: g.Model,
		Messages: []openai.Message{
			{Role: "system", Content: titlePrompt},
			{Role: "user", Content: message},
		},
		MaxCompletionTokens: openai.IntPtr(20),
	})
	if err != nil {
		g.logger().Printf("title generation failed: %v", err)
		return ""
	}
	return CleanTitle(resp.Text())
}

// CleanTitle strips quotes and whitespace and rejects empty or overlong titles.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`“”‘’")
	title = strings.TrimSpace(title)
	if len(title) == 0 || len(title) >= maxTitleLength {
		return ""
	}
	return title
}

func (g *TitleGenerator) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}
