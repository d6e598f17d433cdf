package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Desarso/haochat/images"
	models "github.com/Desarso/haochat/models"
	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/ratelimit"
	"github.com/Desarso/haochat/sessions"
	"github.com/Desarso/haochat/stores"
	"github.com/Desarso/haochat/streaming"
	"github.com/Desarso/haochat/toolcall"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeModel struct {
	mu        sync.Mutex
	chunks    []string
	responses []*openai.ChatCompletionResponse
	calls     int
}

func (f *fakeModel) Complete(context.Context, openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeModel) Stream(context.Context, openai.ChatCompletionRequest) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(strings.Join(f.chunks, ""))), nil
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string) models.SearchResponse {
	return models.SearchResponse{Results: []models.SearchResult{{Title: query, Link: "https://example.com", Snippet: "s"}}}
}

type fakeImages struct{ err error }

func (f fakeImages) Generate(_ context.Context, req models.ImageRequest) (*models.ImageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImageResponse{ImageURL: "https://img.example/a.png", Prompt: req.Prompt, Size: req.Size, Quality: req.Quality}, nil
}

func newTestServer(t *testing.T, model *fakeModel) (*Server, stores.MessageStore) {
	t.Helper()
	store, err := stores.NewSQLiteStoreSimple(filepath.Join(t.TempDir(), "server.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	quiet := log.New(io.Discard, "", 0)
	tools := toolcall.New(model, nil, nil)
	tools.Logger = quiet
	engine := sessions.NewEngine(model, store, tools)
	engine.Logger = quiet

	srv := New(engine)
	srv.Logger = quiet
	srv.Searcher = fakeSearcher{}
	srv.Images = fakeImages{}
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestChatStream_RelaysAndPersists(t *testing.T) {
	model := &fakeModel{chunks: []string{
		"data: {\"content\":\"Hi\"}\n\n",
		"data: {\"content\":\" there\"}\n\n",
		"data: [DONE]\n\n",
	}}
	srv, store := newTestServer(t, model)
	store.CreateConversation("c1", "u1")

	w := do(t, srv.Router(), http.MethodPost, "/api/chat/stream", "u1",
		models.ChatRequest{Message: "hello", ConversationID: "c1", TurnID: "turn-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var (
		acc  streaming.Accumulator
		done bool
	)
	err := streaming.Read(context.Background(), w.Body, streaming.Interpret, func(ev streaming.Event) error {
		acc.Add(ev)
		done = done || ev.IsDone()
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if acc.String() != "Hi there" || !done {
		t.Errorf("Expected relayed %q with done, got %q done=%v", "Hi there", acc.String(), done)
	}

	turn := do(t, srv.Router(), http.MethodGet, "/api/turns/turn-1", "u1", nil)
	var record models.MessageRecord
	json.Unmarshal(turn.Body.Bytes(), &record)
	if turn.Code != http.StatusOK || record.Content != "Hi there" || !record.IsAI {
		t.Errorf("Expected persisted turn, got %d %+v", turn.Code, record)
	}
	if other := do(t, srv.Router(), http.MethodGet, "/api/turns/turn-1", "u2", nil); other.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's turn, got %d", other.Code)
	}
}

func TestChat_BufferedCreatesConversation(t *testing.T) {
	model := &fakeModel{responses: []*openai.ChatCompletionResponse{
		{Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: "Paris is sunny. See https://github.com/weather/paris"}}}},
	}}
	srv, _ := newTestServer(t, model)

	w := do(t, srv.Router(), http.MethodPost, "/api/chat", "u1", models.ChatRequest{Message: "weather in paris today"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message.Content != "Paris is sunny. See [View on GitHub](https://github.com/weather/paris)" {
		t.Errorf("Unexpected content %q", resp.Message.Content)
	}
	if resp.Message.ConversationID == "" || resp.Message.ID == 0 {
		t.Errorf("Expected persisted message in a new conversation, got %+v", resp.Message)
	}

	list := do(t, srv.Router(), http.MethodGet, "/api/conversations", "u1", nil)
	if !strings.Contains(list.Body.String(), resp.Message.ConversationID) {
		t.Errorf("Expected new conversation in listing: %s", list.Body.String())
	}
	msgs := do(t, srv.Router(), http.MethodGet, "/api/conversations/"+resp.Message.ConversationID+"/messages", "u1", nil)
	var page struct {
		Messages []models.MessageRecord `json:"messages"`
	}
	json.Unmarshal(msgs.Body.Bytes(), &page)
	if len(page.Messages) != 2 || page.Messages[0].IsAI || !page.Messages[1].IsAI {
		t.Errorf("Expected user then assistant message, got %+v", page.Messages)
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	srv, store := newTestServer(t, &fakeModel{})
	store.CreateConversation("c1", "u1")

	w := do(t, srv.Router(), http.MethodPost, "/api/chat", "u1", models.ChatRequest{Message: "hi", ConversationID: "c1"})
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), sessions.ErrorText) {
		t.Errorf("Expected 500 with fallback text, got %d %s", w.Code, w.Body.String())
	}
}

func TestChat_ConcurrentTurnConflict(t *testing.T) {
	srv, store := newTestServer(t, &fakeModel{})
	store.CreateConversation("c1", "u1")
	release, err := srv.Engine.Inflight.Acquire("c1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	for _, path := range []string{"/api/chat", "/api/chat/stream"} {
		w := do(t, srv.Router(), http.MethodPost, path, "u1", models.ChatRequest{Message: "hi", ConversationID: "c1"})
		if w.Code != http.StatusConflict {
			t.Errorf("%s: expected 409, got %d", path, w.Code)
		}
	}
}

func TestChat_Validation(t *testing.T) {
	srv, store := newTestServer(t, &fakeModel{})
	store.CreateConversation("theirs", "u2")
	router := srv.Router()

	if w := do(t, router, http.MethodPost, "/api/chat", "", models.ChatRequest{Message: "hi"}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/chat", "u1", models.ChatRequest{Message: "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty message, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/chat", "u1", models.ChatRequest{Message: "hi", ConversationID: "theirs"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's conversation, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/turns/missing", "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown turn, got %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})
	router := srv.Router()

	if w := do(t, router, http.MethodPost, "/api/search", "u1", models.SearchRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty query, got %d", w.Code)
	}
	w := do(t, router, http.MethodGet, "/api/search?q=golang", "u1", nil)
	var resp models.SearchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Results) != 1 || resp.Results[0].Title != "golang" {
		t.Errorf("Unexpected search answer %d %+v", w.Code, resp)
	}

	srv.Searcher = nil
	w = do(t, srv.Router(), http.MethodPost, "/api/search", "u1", models.SearchRequest{Query: "x"})
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Results) != 1 || resp.Results[0].Title != "Search Error" {
		t.Errorf("Expected degraded result, got %d %+v", w.Code, resp)
	}
}

func TestImageGeneration(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})
	router := srv.Router()

	w := do(t, router, http.MethodPost, "/api/image-generation", "u1", models.ImageRequest{Prompt: "a fox"})
	var resp models.ImageResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.ImageURL == "" || resp.Size != "1024x1024" || resp.Quality != "standard" {
		t.Errorf("Unexpected image answer %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"imageUrl"`) {
		t.Errorf("Expected imageUrl field, got %s", w.Body.String())
	}

	if w := do(t, router, http.MethodPost, "/api/image-generation", "u1", models.ImageRequest{Prompt: "a fox", Size: "10x10"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid size, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/image-generation", "u1", models.ImageRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing prompt, got %d", w.Code)
	}

	srv.Images = fakeImages{err: images.ErrContentPolicy}
	w = do(t, srv.Router(), http.MethodPost, "/api/image-generation", "u1", models.ImageRequest{Prompt: "bad"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "error") {
		t.Errorf("Expected 400 error for content policy, got %d %s", w.Code, w.Body.String())
	}
}

func TestFeedback(t *testing.T) {
	srv, store := newTestServer(t, &fakeModel{})
	srv.Feedback = ratelimit.New(2, ratelimit.DefaultFeedbackWindow)
	store.CreateConversation("c1", "u1")
	msg := &stores.Message{ConversationID: "c1", Content: "answer", IsAI: true}
	if err := store.SaveMessage(msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	router := srv.Router()

	tests := []struct {
		name string
		user string
		req  models.FeedbackRequest
		want int
	}{
		{"invalid type", "u1", models.FeedbackRequest{MessageID: msg.ID, FeedbackType: "meh"}, http.StatusBadRequest},
		{"text too long", "u1", models.FeedbackRequest{MessageID: msg.ID, FeedbackType: "helpful", FeedbackText: strings.Repeat("a", 501)}, http.StatusBadRequest},
		{"not owner", "u2", models.FeedbackRequest{MessageID: msg.ID, FeedbackType: "helpful"}, http.StatusForbidden},
		{"unknown message", "u1", models.FeedbackRequest{MessageID: 999, FeedbackType: "helpful"}, http.StatusNotFound},
		{"accepted", "u1", models.FeedbackRequest{MessageID: msg.ID, FeedbackType: "perfect"}, http.StatusOK},
		{"rate limited", "u1", models.FeedbackRequest{MessageID: msg.ID, FeedbackType: "helpful"}, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/api/profile/feedback", tt.user, tt.req); w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestConversationTraces(t *testing.T) {
	srv, store := newTestServer(t, &fakeModel{})
	traces, err := stores.NewGORMTraceStore(store.DB())
	if err != nil {
		t.Fatalf("NewGORMTraceStore: %v", err)
	}
	srv.Traces = traces
	store.CreateConversation("c1", "u1")
	traces.SaveTraces([]*stores.ToolTrace{{ConversationID: "c1", ToolCallID: "call_1", Tool: "web_search", Status: stores.TraceStatusOK, Label: "golang"}})

	w := do(t, srv.Router(), http.MethodGet, "/api/conversations/c1/traces", "u1", nil)
	var page struct {
		Traces []models.ToolTraceRecord `json:"traces"`
	}
	json.Unmarshal(w.Body.Bytes(), &page)
	if w.Code != http.StatusOK || len(page.Traces) != 1 || page.Traces[0].Detail != "golang" {
		t.Errorf("Unexpected traces %d %s", w.Code, w.Body.String())
	}
	if w := do(t, srv.Router(), http.MethodGet, "/api/conversations/c1/traces", "u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user, got %d", w.Code)
	}
}

func TestScheduler(t *testing.T) {
	s, err := NewScheduler(ratelimit.New(1, ratelimit.DefaultFeedbackWindow), "")
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 1 {
		t.Errorf("Expected one job, got %d", s.Entries())
	}
	if _, err := NewScheduler(ratelimit.New(1, ratelimit.DefaultFeedbackWindow), "not a spec"); err == nil {
		t.Error("Expected error for invalid spec")
	}
}

func TestWebSocket_StreamTurn(t *testing.T) {
	model := &fakeModel{chunks: []string{
		"data: {\"content\":\"Hel\"}\n\n",
		"data: {\"content\":\"lo\"}\n\n",
		"data: [DONE]\n\n",
	}}
	srv, store := newTestServer(t, model)
	store.CreateConversation("c1", "u1")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	header := http.Header{}
	header.Set("X-User-ID", "u1")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/chat", header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(models.ChatRequest{Message: "hello", ConversationID: "c1", TurnID: "ws-turn"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var acc streaming.Accumulator
	for {
		var ev streaming.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON failed: %v", err)
		}
		if ev.IsDone() {
			break
		}
		acc.Add(ev)
	}
	if acc.String() != "Hello" {
		t.Errorf("Expected %q, got %q", "Hello", acc.String())
	}
	msg, err := store.FindMessageByTurnID("ws-turn")
	if err != nil || msg.Content != "Hello" {
		t.Errorf("Expected persisted turn, got %+v, %v", msg, err)
	}
}
