package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/search"
	"github.com/Desarso/haochat/stores"
)

// Searcher is the web search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string) models.SearchResponse
}

// ImageGenerator is the image-generation collaborator.
type ImageGenerator interface {
	Generate(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error)
}

// Image tool calls always use these, whatever the model asked for.
const (
	toolImageSize    = "1024x1024"
	toolImageQuality = "standard"
)

// execute runs one call. Failures become error payloads on the result.
func (o *Orchestrator) execute(ctx context.Context, turn Turn, call models.ToolCall, offered map[string]bool, out *Outcome) (models.ToolResult, *stores.ToolTrace) {
	start := time.Now()
	trace := &stores.ToolTrace{
		ConversationID: turn.ConversationID,
		TurnID:         turn.TurnID,
		ToolCallID:     call.ID,
		Tool:           call.Name,
		Status:         stores.TraceStatusOK,
	}

	var (
		payload interface{}
		err     error
	)
	switch {
	case !offered[call.Name]:
		err = fmt.Errorf("tool %q is not available", call.Name)
	case call.Name == models.ToolWebSearch:
		payload, err = o.webSearch(ctx, call, trace)
	case call.Name == models.ToolImageGeneration:
		payload, err = o.generateImage(ctx, call, trace, out)
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}

	trace.DurationMS = time.Since(start).Milliseconds()
	result := models.ToolResult{ToolCallID: call.ID, Name: call.Name}
	if err != nil {
		o.logf("turn %s: tool %s (%s) failed: %v", turn.TurnID, call.Name, call.ID, err)
		trace.Status = stores.TraceStatusError
		trace.Details = map[string]any{"error": err.Error()}
		result.Output = errorPayload(err)
		result.IsError = true
		return result, trace
	}

	data, mErr := json.Marshal(payload)
	if mErr != nil {
		result.Output = errorPayload(fmt.Errorf("failed to encode tool result: %w", mErr))
		result.IsError = true
		trace.Status = stores.TraceStatusError
		return result, trace
	}
	result.Output = string(data)
	return result, trace
}

func (o *Orchestrator) webSearch(ctx context.Context, call models.ToolCall, trace *stores.ToolTrace) (interface{}, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for web_search: %w", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, fmt.Errorf("missing required argument: query")
	}
	if o.Searcher == nil {
		return nil, fmt.Errorf("web search is not configured")
	}
	trace.Label = query

	resp := o.Searcher.Search(ctx, query)
	if search.IsErrorResponse(resp) {
		trace.Status = stores.TraceStatusError
	}
	capped := CapResults(resp.Results, o.Thresholds)
	trace.Details = map[string]any{"results": len(resp.Results), "kept": len(capped)}

	return map[string]interface{}{"search_results": capped}, nil
}

func (o *Orchestrator) generateImage(ctx context.Context, call models.ToolCall, trace *stores.ToolTrace, out *Outcome) (interface{}, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for image_generation: %w", err)
	}
	prompt := strings.TrimSpace(args.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("missing required argument: prompt")
	}
	if o.Images == nil {
		return nil, fmt.Errorf("image generation is not configured")
	}
	trace.Label = prompt

	img, err := o.Images.Generate(ctx, models.ImageRequest{
		Prompt:  prompt,
		Size:    toolImageSize,
		Quality: toolImageQuality,
	})
	if err != nil {
		return nil, err
	}
	out.ImageURLs = append(out.ImageURLs, img.ImageURL)
	return img, nil
}

func errorPayload(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}
