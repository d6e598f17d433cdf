package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/sanitize"
	"github.com/Desarso/haochat/streaming"
	"github.com/Desarso/haochat/toolcall"
)

const imageOnlyText = "Here is the image you asked for."

// RunStream runs one streaming turn, relaying content deltas to sink and
// persisting the accumulated text once the upstream stream completes.
//
// Only validation and single-flight errors are returned before anything is
// written to sink. Every later failure ends the sink with a short user-facing
// message and a done event.
func (s *HTTPSession) RunStream(ctx context.Context, req models.ChatRequest, sink EventSink) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req.ConversationID = s.ConversationID
	release, err := s.Engine.acquire(req.ConversationID)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg := s.Engine.config()
	ctx, cancel := detach(ctx, cfg.StreamTimeout)
	defer cancel()

	history, err := s.Engine.history(req.ConversationID)
	if err != nil {
		return nil, s.fail(sink, err)
	}
	if err := s.Engine.persistUser(req); err != nil {
		s.Logger.Printf("Error saving user message: %v", err)
	}

	effort, maxTokens, verbosity := s.Engine.requestParams(req.DeepResearch, true)
	body, err := s.Engine.Streamer.Stream(ctx, openai.ChatCompletionRequest{
		Model:               cfg.Model,
		Messages:            s.Engine.buildMessages(req, history, false),
		MaxCompletionTokens: openai.IntPtr(maxTokens),
		ReasoningEffort:     effort,
		Verbosity:           verbosity,
	})
	if err != nil {
		return nil, s.fail(sink, fmt.Errorf("failed to open stream: %w", err))
	}
	defer body.Close()

	var (
		acc     streaming.Accumulator
		sinkErr error
	)
	readErr := streaming.Read(ctx, body, openai.InterpretChunk, func(ev streaming.Event) error {
		if ev.IsDone() {
			return nil
		}
		acc.Add(ev)
		if sinkErr == nil {
			if sinkErr = sink.WriteEvent(ev); sinkErr != nil {
				s.Logger.Printf("Client went away, finishing turn %s in background: %v", req.TurnID, sinkErr)
			}
		}
		return nil
	})

	text := acc.String()
	if strings.TrimSpace(text) == "" {
		if readErr == nil {
			readErr = ErrNoContent
		}
		return nil, s.fail(sink, readErr)
	}
	if readErr != nil {
		s.Logger.Printf("Stream ended early after %d bytes, keeping partial text: %v", acc.Len(), readErr)
	}

	result := s.finish(ctx, req, sanitize.StripTransientImages(text), nil)
	if sinkErr == nil {
		if err := sink.WriteEvent(streaming.Done(result.Title)); err != nil {
			s.Logger.Printf("Error writing done event: %v", err)
		}
	}
	return result, nil
}

// RunBuffered runs one tool-capable turn and returns the final message.
// When the model could not be reached the returned Result carries the
// user-facing fallback text alongside the error.
func (s *HTTPSession) RunBuffered(ctx context.Context, req models.ChatRequest) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req.ConversationID = s.ConversationID
	release, err := s.Engine.acquire(req.ConversationID)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg := s.Engine.config()
	ctx, cancel := detach(ctx, cfg.BufferedTimeout)
	defer cancel()

	history, err := s.Engine.history(req.ConversationID)
	if err != nil {
		return nil, err
	}
	webSearch := s.webSearchEnabled(ctx, req, history)
	if err := s.Engine.persistUser(req); err != nil {
		s.Logger.Printf("Error saving user message: %v", err)
	}
	if len(history) == 0 {
		req.GenerateTitle = true
	}

	effort, maxTokens, verbosity := s.Engine.requestParams(req.DeepResearch, false)
	tools := toolcall.SelectTools(webSearch)
	s.Logger.Printf("Buffered turn %s: web_search=%v deep=%v tools=%d", req.TurnID, webSearch, req.DeepResearch, len(tools))

	outcome := s.orchestrator().Run(ctx, toolcall.Turn{
		ConversationID: req.ConversationID,
		TurnID:         req.TurnID,
		Request: openai.ChatCompletionRequest{
			Model:               cfg.Model,
			Messages:            s.Engine.buildMessages(req, history, webSearch),
			Tools:               openai.ConvertTools(tools),
			ToolChoice:          "auto",
			MaxCompletionTokens: openai.IntPtr(maxTokens),
			ReasoningEffort:     effort,
			Verbosity:           verbosity,
		},
	})

	text := outcome.Text
	if outcome.Err == nil && strings.TrimSpace(text) == "" {
		if len(outcome.ImageURLs) == 0 {
			outcome.Err = ErrNoContent
		} else {
			text = imageOnlyText
		}
	}
	if outcome.Err != nil {
		return &Result{
			Message:   models.MessageRecord{ConversationID: req.ConversationID, Content: userFacingError(outcome.Err), IsAI: true, TurnID: req.TurnID},
			ToolsUsed: outcome.ToolsUsed,
		}, outcome.Err
	}

	result := s.finish(ctx, req, text, outcome.ImageURLs)
	result.ToolsUsed = outcome.ToolsUsed
	return result, nil
}

// finish persists the assistant text and generates a title if asked to.
func (s *HTTPSession) finish(ctx context.Context, req models.ChatRequest, text string, imageURLs []string) *Result {
	result := &Result{
		Message: models.MessageRecord{
			ConversationID: req.ConversationID,
			Content:        text,
			IsAI:           true,
			ImageURLs:      imageURLs,
			TurnID:         req.TurnID,
		},
	}
	if msg, err := s.Engine.persistAssistant(req, text, imageURLs); err != nil {
		s.Logger.Printf("Error saving assistant message: %v", err)
	} else {
		result.Message = Record(msg)
		result.Persisted = true
	}
	result.Title = s.Engine.title(ctx, req)
	return result
}

func (s *HTTPSession) webSearchEnabled(ctx context.Context, req models.ChatRequest, history []models.HistoryMessage) bool {
	if req.AllowWebSearch {
		return true
	}
	if !req.EnableAIWebSearchDetection || s.Engine.Classifier == nil {
		return false
	}
	return s.Engine.Classifier.NeedsWebSearch(ctx, req.Message, history)
}

func (s *HTTPSession) orchestrator() *toolcall.Orchestrator {
	if s.Engine.Tools != nil {
		return s.Engine.Tools
	}
	return toolcall.New(s.Engine.Completer, nil, nil)
}

// fail ends the sink with a user-facing message and returns err.
func (s *HTTPSession) fail(sink EventSink, err error) error {
	s.Logger.Printf("Stream turn failed: %v", err)
	if werr := sink.WriteEvent(streaming.Content(userFacingError(err))); werr == nil {
		sink.WriteEvent(streaming.Done(""))
	}
	return err
}

func userFacingError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutText
	}
	return ErrorText
}
