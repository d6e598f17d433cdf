// Package client sends chat messages to a haochat server. It chooses the
// transport for each message, relays streamed deltas as they arrive, and
// reconciles by turn ID when a request times out.
package client

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
	"sync"
	"time"

	"github.com/Desarso/haochat/inflight"
	"github.com/Desarso/haochat/intent"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/streaming"
	"github.com/google/uuid"
)

// Texts shown to the user when a turn does not resolve normally.
const (
	FailureText = "Sorry, I encountered an error processing your message. Please try again."
	TimeoutText = "Request timed out after 4 minutes. Please try again."
	PendingText = "Still processing your request. Checking for the response..."
)

var (
	// ErrTurnInFlight is returned when the conversation already has a
	// message being sent. The new message is dropped, not queued.
	ErrTurnInFlight = errors.New("a message is already in flight for this conversation")
	// ErrNotFound is returned when the server has no record of a turn.
	ErrNotFound = errors.New("not found")
	// ErrIncompleteStream is returned when a stream ended without a done event.
	ErrIncompleteStream = errors.New("stream ended before completion")
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Message is one outgoing user message.
type Message struct {
	ConversationID string
	Text           string
	DeepResearch   bool
	WebSearch      bool
	GenerateTitle  bool
	Attachments    []models.Attachment
}

// Callbacks receive progress while a message is in flight. Both are optional.
type Callbacks struct {
	// OnDelta is called for every streamed content delta with the text
	// accumulated so far.
	OnDelta func(delta, full string)
	// OnStatus is called with transient status text such as PendingText.
	OnStatus func(status string)
}

// Reply is the resolved answer to one message. Text is never empty.
type Reply struct {
	TurnID     string
	Transport  intent.Decision
	Text       string
	ImageURLs  []string
	Title      string
	MessageID  uint
	Reconciled bool
	Failed     bool
	Err        error
}

// Client talks to a haochat server.
type Client struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
	Classifier intent.Classifier
	Logger     *log.Logger

	StreamTimeout     time.Duration
	BufferedTimeout   time.Duration
	ReconcileAttempts int
	ReconcileInterval time.Duration

	guardOnce sync.Once
	guard     *inflight.Guard
}

// New creates a client with the default deadlines and reconciliation policy.
func New(baseURL, userID string) *Client {
	return &Client{
		BaseURL:           strings.TrimRight(baseURL, "/"),
		UserID:            userID,
		HTTPClient:        &http.Client{},
		Classifier:        intent.Keywords{},
		Logger:            log.New(os.Stdout, "[CLIENT] ", log.LstdFlags),
		StreamTimeout:     240 * time.Second,
		BufferedTimeout:   240 * time.Second,
		ReconcileAttempts: 3,
		ReconcileInterval: 5 * time.Second,
	}
}

// Send delivers msg and blocks until its reply is resolved. The transport
// is decided once, before the request is issued. A second Send for the same
// conversation while one is outstanding returns ErrTurnInFlight.
func (c *Client) Send(ctx context.Context, msg Message, cb Callbacks) (*Reply, error) {
	if strings.TrimSpace(msg.Text) == "" && len(msg.Attachments) == 0 {
		return nil, errors.New("message is required")
	}
	release, err := c.turns().Acquire(msg.ConversationID)
	if err != nil {
		return nil, ErrTurnInFlight
	}
	defer release()

	reply := &Reply{
		TurnID: uuid.New().String(),
		Transport: intent.Decide(c.Classifier, msg.Text, intent.Flags{
			DeepResearch: msg.DeepResearch,
			WebSearch:    msg.WebSearch,
		}),
	}
	req := models.ChatRequest{
		Message:                    msg.Text,
		ConversationID:             msg.ConversationID,
		TurnID:                     reply.TurnID,
		DeepResearch:               msg.DeepResearch,
		AllowWebSearch:             msg.WebSearch,
		EnableAIWebSearchDetection: true,
		GenerateTitle:              msg.GenerateTitle,
		Attachments:                msg.Attachments,
	}
	c.logf("turn %s on %s via %s", reply.TurnID, msg.ConversationID, reply.Transport)

	var partial string
	if reply.Transport == intent.Stream {
		partial, err = c.stream(ctx, req, reply, cb)
	} else {
		err = c.buffered(ctx, req, reply)
	}
	if err == nil {
		return reply, nil
	}

	var status *StatusError
	if errors.As(err, &status) && status.StatusCode == http.StatusConflict {
		return nil, ErrTurnInFlight
	}
	if !reconcilable(err) {
		c.logf("turn %s failed: %v", reply.TurnID, err)
		reply.Failed = true
		reply.Err = err
		reply.Text = FailureText
		return reply, nil
	}

	c.logf("turn %s interrupted (%v), reconciling", reply.TurnID, err)
	if cb.OnStatus != nil {
		cb.OnStatus(PendingText)
	}
	record, rerr := c.reconcile(context.WithoutCancel(ctx), reply.TurnID)
	if rerr == nil {
		reply.Reconciled = true
		reply.Text = record.Content
		reply.ImageURLs = record.ImageURLs
		reply.MessageID = record.ID
		return reply, nil
	}

	reply.Err = err
	if partial != "" {
		reply.Text = partial
		return reply, nil
	}
	reply.Failed = true
	reply.Text = FailureText
	if errors.Is(err, context.DeadlineExceeded) {
		reply.Text = TimeoutText
	}
	return reply, nil
}

// stream drives the SSE endpoint. It returns the text accumulated so far
// alongside any error.
func (c *Client) stream(ctx context.Context, req models.ChatRequest, reply *Reply, cb Callbacks) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(c.StreamTimeout))
	defer cancel()

	resp, err := c.post(ctx, "/api/chat/stream", req, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var (
		acc  streaming.Accumulator
		done bool
	)
	err = streaming.Read(ctx, resp.Body, streaming.Interpret, func(ev streaming.Event) error {
		if ev.IsDone() {
			done = true
			reply.Title = ev.TitleOrEmpty()
			return nil
		}
		acc.Add(ev)
		if cb.OnDelta != nil {
			cb.OnDelta(ev.Content, acc.String())
		}
		return nil
	})
	text := acc.String()
	if err != nil {
		return text, err
	}
	if !done {
		return text, ErrIncompleteStream
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("stream completed without content")
	}
	reply.Text = text
	return text, nil
}

func (c *Client) buffered(ctx context.Context, req models.ChatRequest, reply *Reply) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(c.BufferedTimeout))
	defer cancel()

	resp, err := c.post(ctx, "/api/chat", req, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode chat response: %w", err)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return errors.New("chat response had no content")
	}
	reply.Text = out.Message.Content
	reply.ImageURLs = out.Message.ImageURLs
	reply.MessageID = out.Message.ID
	reply.Title = out.Title
	return nil
}

// reconcile polls for the persisted reply of turnID.
func (c *Client) reconcile(ctx context.Context, turnID string) (*models.MessageRecord, error) {
	attempts := c.ReconcileAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.ReconcileInterval):
		}

		record, err := c.Turn(ctx, turnID)
		if err == nil {
			return record, nil
		}
		lastErr = err
		c.logf("reconcile %s attempt %d/%d: %v", turnID, i+1, attempts, err)
	}
	return nil, lastErr
}

// Turn fetches the persisted assistant message for turnID.
func (c *Client) Turn(ctx context.Context, turnID string) (*models.MessageRecord, error) {
	var record models.MessageRecord
	if err := c.getJSON(ctx, "/api/turns/"+turnID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateConversation starts a new conversation and returns its ID.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, "/api/conversations", struct{}{}, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out models.ConversationRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode conversation: %w", err)
	}
	return out.ConversationID, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, accept string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends req and converts non-2xx answers into errors.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.UserID != "" {
		req.Header.Set("X-User-ID", c.UserID)
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	msg := strings.TrimSpace(string(body))
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// reconcilable reports whether the server may still complete the turn
// after err. Definitive server answers are not retried.
func reconcilable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusBadGateway ||
			status.StatusCode == http.StatusServiceUnavailable ||
			status.StatusCode == http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}

func (c *Client) timeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 240 * time.Second
	}
	return d
}

// turns is the per-conversation in-flight guard.
func (c *Client) turns() *inflight.Guard {
	c.guardOnce.Do(func() { c.guard = inflight.New() })
	return c.guard
}

func (c *Client) logf(format string, args ...interface{}) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
