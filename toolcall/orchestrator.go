// Package toolcall drives one buffered model turn through tool execution and
// a single follow-up completion.
package toolcall

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/sanitize"
	"github.com/Desarso/haochat/stores"
)

// State is a step of the turn state machine.
type State int

const (
	AwaitingModelResponse State = iota
	ExecutingTools
	AwaitingFollowup
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModelResponse:
		return "awaiting_model_response"
	case ExecutingTools:
		return "executing_tools"
	case AwaitingFollowup:
		return "awaiting_followup"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FallbackText is surfaced when the model produced nothing usable.
const FallbackText = "Sorry, I encountered an error processing your message. Please try again."

// FollowupParams bound the finalization request after tools ran.
type FollowupParams struct {
	Model               string
	MaxCompletionTokens int
	ReasoningEffort     string
	Verbosity           string
}

var DefaultFollowupParams = FollowupParams{
	MaxCompletionTokens: 6000,
	ReasoningEffort:     "low",
	Verbosity:           "low",
}

// Turn is one buffered model turn.
type Turn struct {
	ConversationID string
	TurnID         string
	Request        openai.ChatCompletionRequest
}

// Outcome is the resolved result of a turn. Text is already sanitized.
type Outcome struct {
	Text           string
	ImageURLs      []string
	ToolsUsed      []string
	Results        []models.ToolResult
	States         []State
	FollowupFailed bool
	// Err is set when the initial completion failed and Text is FallbackText.
	Err error
}

// Orchestrator executes tool calls requested by the model.
type Orchestrator struct {
	Completer  openai.Completer
	Searcher   Searcher
	Images     ImageGenerator
	Traces     stores.TraceStore
	Thresholds CapThresholds
	Followup   FollowupParams
	Logger     *log.Logger
}

// New creates an orchestrator with default thresholds and follow-up limits.
func New(completer openai.Completer, searcher Searcher, images ImageGenerator) *Orchestrator {
	return &Orchestrator{
		Completer:  completer,
		Searcher:   searcher,
		Images:     images,
		Thresholds: DefaultCapThresholds,
		Followup:   DefaultFollowupParams,
		Logger:     log.New(os.Stdout, "[TOOLCALL] ", log.LstdFlags),
	}
}

// Run drives turn to Done. It never returns an error: every failure
// degrades to the best available text.
func (o *Orchestrator) Run(ctx context.Context, turn Turn) Outcome {
	var (
		out      Outcome
		resp     *openai.ChatCompletionResponse
		calls    []models.ToolCall
		preText  string
		rawFinal string
	)

	state := AwaitingModelResponse
	for {
		out.States = append(out.States, state)

		switch state {
		case AwaitingModelResponse:
			var err error
			resp, err = o.Completer.Complete(ctx, turn.Request)
			if err != nil {
				o.logf("turn %s: completion failed: %v", turn.TurnID, err)
				out.Err = err
				out.Text = FallbackText
				out.States = append(out.States, Done)
				return out
			}
			preText = resp.Text()
			calls = resp.ToolCalls()
			if len(calls) == 0 {
				rawFinal = preText
				state = Done
				continue
			}
			state = ExecutingTools

		case ExecutingTools:
			offered := offeredTools(turn.Request.Tools)
			traces := make([]*stores.ToolTrace, 0, len(calls))
			for _, call := range calls {
				result, trace := o.execute(ctx, turn, call, offered, &out)
				out.Results = append(out.Results, result)
				out.ToolsUsed = appendUnique(out.ToolsUsed, call.Name)
				traces = append(traces, trace)
			}
			o.saveTraces(traces)
			state = AwaitingFollowup

		case AwaitingFollowup:
			text, err := o.followup(ctx, turn, resp, out.Results)
			if err != nil || text == "" {
				if err == nil {
					err = errors.New("empty follow-up response")
				}
				o.logf("turn %s: follow-up failed, using pre-tool text: %v", turn.TurnID, err)
				out.FollowupFailed = true
				text = preText
			}
			rawFinal = text
			state = Done

		case Done:
			out.Text = sanitize.Clean(rawFinal, out.ImageURLs)
			return out
		}
	}
}

func (o *Orchestrator) followup(ctx context.Context, turn Turn, resp *openai.ChatCompletionResponse, results []models.ToolResult) (string, error) {
	messages := make([]openai.Message, 0, len(turn.Request.Messages)+1+len(results))
	messages = append(messages, turn.Request.Messages...)
	messages = append(messages, resp.AssistantMessage())
	for _, r := range results {
		messages = append(messages, openai.Message{
			Role:       "tool",
			ToolCallID: r.ToolCallID,
			Content:    r.Output,
		})
	}

	params := o.Followup
	if params.MaxCompletionTokens == 0 {
		params = DefaultFollowupParams
	}
	model := params.Model
	if model == "" {
		model = turn.Request.Model
	}

	follow, err := o.Completer.Complete(ctx, openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: openai.IntPtr(params.MaxCompletionTokens),
		ReasoningEffort:     params.ReasoningEffort,
		Verbosity:           params.Verbosity,
	})
	if err != nil {
		return "", err
	}
	return follow.Text(), nil
}

func (o *Orchestrator) saveTraces(traces []*stores.ToolTrace) {
	if o.Traces == nil || len(traces) == 0 {
		return
	}
	if err := o.Traces.SaveTraces(traces); err != nil {
		o.logf("failed to save %d tool traces: %v", len(traces), err)
	}
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

func offeredTools(tools []openai.Tool) map[string]bool {
	offered := make(map[string]bool, len(tools))
	for _, t := range tools {
		offered[t.Function.Name] = true
	}
	return offered
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
