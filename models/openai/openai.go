package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/Desarso/haochat/streaming"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-5"
)

// ErrEmptyResponse is returned when the upstream answers 200 with no choices.
var ErrEmptyResponse = errors.New("openai: response contained no choices")

// Completer issues buffered chat completions.
type Completer interface {
	Complete(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Streamer opens a streaming chat completion and returns the raw SSE body.
type Streamer interface {
	Stream(ctx context.Context, req ChatCompletionRequest) (io.ReadCloser, error)
}

// Client talks to an OpenAI-compatible chat/completions endpoint.
type Client struct {
	Model      string
	BaseURL    string // Full chat/completions URL; defaults to OpenAI
	APIKey     string // Takes precedence over APIKeyEnv
	APIKeyEnv  string // Defaults to OPENAI_API_KEY
	HTTPClient *http.Client
	Logger     *log.Logger
	// Headers are added to every request, e.g. OpenRouter attribution.
	Headers map[string]string
}

// Complete sends a non-streaming request.
func (c *Client) Complete(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response ChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &response, nil
}

// Stream sends a streaming request. The caller owns the returned body and
// should drive it with streaming.Read and InterpretChunk.
func (c *Client) Stream(ctx context.Context, req ChatCompletionRequest) (io.ReadCloser, error) {
	req.Stream = true
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, req ChatCompletionRequest) (*http.Response, error) {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	jsonBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq, req.Stream)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		apiErr := decodeAPIError(resp.StatusCode, body)
		c.logger().Printf("[OPENAI] %s request failed: %v", req.Model, apiErr)
		return nil, apiErr
	}
	return resp, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		if errResp.Error.Code != nil {
			apiErr.Code = fmt.Sprint(errResp.Error.Code)
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// setHeaders sets the required headers for chat/completions requests
func (c *Client) setHeaders(req *http.Request, stream bool) {
	apiKey := c.APIKey
	if apiKey == "" {
		apiKeyEnv := c.APIKeyEnv
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENAI_API_KEY"
		}
		apiKey = os.Getenv(apiKeyEnv)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// InterpretChunk decodes one chat.completion.chunk payload into a content
// delta. Chunks without text (role announcements, tool-call deltas, usage)
// produce nothing. Payloads without a choices array fall back to Interpret.
func InterpretChunk(payload string) (streaming.Event, bool) {
	if payload == "" {
		return streaming.Event{}, false
	}
	if payload == streaming.DoneSentinel {
		return streaming.Event{Type: streaming.EventDone}, true
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil || chunk.Choices == nil {
		// Not a completion chunk: plain text or an already relayed event.
		return streaming.Interpret(payload)
	}
	for _, choice := range chunk.Choices {
		if choice.Delta != nil && choice.Delta.Content != "" {
			return streaming.Content(choice.Delta.Content), true
		}
	}
	return streaming.Event{}, false
}
