package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Desarso/haochat/inflight"
	"github.com/Desarso/haochat/intent"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/stores"
	"github.com/Desarso/haochat/toolcall"
	"github.com/google/uuid"
)

// TurnConfig holds the per-turn limits shared by every session.
type TurnConfig struct {
	Model           string
	HistoryLimit    int
	StreamTimeout   time.Duration
	BufferedTimeout time.Duration
	MaxTokens       int
	DeepMaxTokens   int
}

// DefaultTurnConfig returns the limits used when none are configured.
func DefaultTurnConfig() TurnConfig {
	return TurnConfig{
		Model:           openai.DefaultModel,
		HistoryLimit:    20,
		StreamTimeout:   240 * time.Second,
		BufferedTimeout: 240 * time.Second,
		MaxTokens:       4000,
		DeepMaxTokens:   8000,
	}
}

// Engine holds the collaborators shared by all sessions. Sessions are cheap
// and created per request; the engine lives for the process.
type Engine struct {
	Completer  openai.Completer
	Streamer   openai.Streamer
	Store      stores.MessageStore
	Tools      *toolcall.Orchestrator
	Classifier intent.Classifier
	Prompt     PromptBuilder
	Titles     *TitleGenerator
	Inflight   *inflight.Guard
	Config     TurnConfig
	Logger     *log.Logger
}

// NewEngine wires an engine around one OpenAI-compatible client.
func NewEngine(client interface {
	openai.Completer
	openai.Streamer
}, store stores.MessageStore, tools *toolcall.Orchestrator) *Engine {
	return &Engine{
		Completer:  client,
		Streamer:   client,
		Store:      store,
		Tools:      tools,
		Classifier: intent.Keywords{},
		Prompt:     DefaultPrompt{},
		Inflight:   inflight.New(),
		Config:     DefaultTurnConfig(),
		Logger:     log.New(os.Stdout, "[ENGINE] ", log.LstdFlags),
	}
}

// EnsureConversation makes req refer to a conversation owned by userID,
// creating one when the request carries no ID. A conversation owned by
// someone else is reported as stores.ErrNotFound.
func (e *Engine) EnsureConversation(req *models.ChatRequest, userID string) error {
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
		if err := e.Store.CreateConversation(req.ConversationID, userID); err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return nil
	}
	_, err := e.Authorize(req.ConversationID, userID)
	return err
}

// Authorize loads a conversation and checks that userID owns it.
func (e *Engine) Authorize(conversationID, userID string) (*stores.Conversation, error) {
	convo, err := e.Store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if convo.UserID != userID {
		return nil, stores.ErrNotFound
	}
	return convo, nil
}

// requestParams returns effort, token budget and verbosity for a turn.
func (e *Engine) requestParams(deep, stream bool) (effort string, maxTokens int, verbosity string) {
	cfg := e.config()
	if !deep {
		return "low", cfg.MaxTokens, "low"
	}
	if stream {
		return "high", cfg.DeepMaxTokens, "medium"
	}
	return "high", cfg.DeepMaxTokens, "high"
}

func (e *Engine) config() TurnConfig {
	cfg := e.Config
	def := DefaultTurnConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = def.StreamTimeout
	}
	if cfg.BufferedTimeout <= 0 {
		cfg.BufferedTimeout = def.BufferedTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.DeepMaxTokens <= 0 {
		cfg.DeepMaxTokens = def.DeepMaxTokens
	}
	return cfg
}

// history loads and sanitizes the recent messages of a conversation.
func (e *Engine) history(conversationID string) ([]models.HistoryMessage, error) {
	msgs, err := e.Store.FetchHistory(conversationID, e.config().HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	if issues := stores.DetectCorruptedHistory(msgs); len(issues) > 0 {
		e.logf("repairing history of %s: %s", conversationID, strings.Join(issues, "; "))
	}
	msgs = stores.SanitizeHistory(msgs)

	history := make([]models.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, models.HistoryMessage{Content: m.Content, IsAI: m.IsAI})
	}
	return history, nil
}

// buildMessages assembles the system prompt, history and the user message.
func (e *Engine) buildMessages(req models.ChatRequest, history []models.HistoryMessage, webSearch bool) []openai.Message {
	prompt := e.Prompt
	if prompt == nil {
		prompt = DefaultPrompt{}
	}

	messages := make([]openai.Message, 0, len(history)+2)
	messages = append(messages, openai.Message{Role: "system", Content: prompt.SystemPrompt(req, webSearch)})
	for _, h := range history {
		messages = append(messages, openai.Message{Role: h.Role(), Content: h.Content})
	}
	messages = append(messages, openai.Message{Role: "user", Content: userContent(req)})
	return messages
}

func userContent(req models.ChatRequest) string {
	if len(req.Attachments) == 0 {
		return req.Message
	}
	var b strings.Builder
	b.WriteString(req.Message)
	for _, a := range req.Attachments {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n[Attachment: %s]\n%s", a.Name, a.Text)
	}
	return b.String()
}

func validate(req models.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}

// acquire claims the conversation for one turn.
func (e *Engine) acquire(conversationID string) (func(), error) {
	if e.Inflight == nil {
		return func() {}, nil
	}
	release, err := e.Inflight.Acquire(conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
	}
	return release, nil
}

// detach returns a context that survives the caller going away but still
// ends after timeout.
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (e *Engine) persistUser(req models.ChatRequest) error {
	msg := &stores.Message{ConversationID: req.ConversationID, Content: userContent(req)}
	if err := e.Store.SaveMessage(msg); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}
	return nil
}

func (e *Engine) persistAssistant(req models.ChatRequest, text string, imageURLs []string) (*stores.Message, error) {
	msg := &stores.Message{
		ConversationID: req.ConversationID,
		Content:        text,
		IsAI:           true,
		TurnID:         req.TurnID,
		ImageURLs:      imageURLs,
	}
	if err := e.Store.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}
	return msg, nil
}

// Record maps a stored message onto its API shape.
func Record(m *stores.Message) models.MessageRecord {
	return models.MessageRecord{
		ID:             m.ID,
		CreatedAt:      m.CreatedAt,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		IsAI:           m.IsAI,
		ImageURLs:      m.ImageURLs,
		TurnID:         m.TurnID,
	}
}

func (e *Engine) title(ctx context.Context, req models.ChatRequest) string {
	if !req.GenerateTitle || e.Titles == nil {
		return ""
	}
	title := e.Titles.Generate(ctx, req.Message)
	if title == "" {
		return ""
	}
	if err := e.Store.UpdateConversationTitle(req.ConversationID, title); err != nil && !errors.Is(err, stores.ErrNotFound) {
		e.logf("failed to store title for %s: %v", req.ConversationID, err)
	}
	return title
}

func (e *Engine) logf(format string, args ...interface{}) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
