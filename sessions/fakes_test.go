package sessions

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/stores"
	"github.com/Desarso/haochat/streaming"
	"gorm.io/gorm"
)

// memStore is an in-memory MessageStore.
type memStore struct {
	mu       sync.Mutex
	convos   map[string]*stores.Conversation
	messages []stores.Message
	saves    []stores.Message
	feedback []stores.Feedback
}

func newMemStore() *memStore {
	return &memStore{convos: make(map[string]*stores.Conversation)}
}

func (m *memStore) SaveMessage(msg *stores.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convos[msg.ConversationID]; !ok {
		return stores.ErrNotFound
	}
	if msg.IsAI && msg.TurnID != "" {
		for _, existing := range m.messages {
			if existing.IsAI && existing.TurnID == msg.TurnID {
				*msg = existing
				return nil
			}
		}
	}
	msg.ID = uint(len(m.messages) + 1)
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	m.saves = append(m.saves, *msg)
	m.convos[msg.ConversationID].MessageCount++
	return nil
}

func (m *memStore) FetchHistory(conversationID string, limit int) ([]stores.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stores.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) GetMessage(id uint) (*stores.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			found := msg
			return &found, nil
		}
	}
	return nil, stores.ErrNotFound
}

func (m *memStore) FindMessageByTurnID(turnID string) (*stores.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.IsAI && msg.TurnID == turnID {
			found := msg
			return &found, nil
		}
	}
	return nil, stores.ErrNotFound
}

func (m *memStore) CreateConversation(convoID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convos[convoID] = &stores.Conversation{ConversationID: convoID, UserID: userID}
	return nil
}

func (m *memStore) GetConversation(convoID string) (*stores.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convos[convoID]
	if !ok {
		return nil, stores.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) ListConversationsForUser(userID string) ([]stores.ConversationInfo, error) {
	return nil, nil
}

func (m *memStore) UpdateConversationTitle(convoID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convos[convoID]
	if !ok {
		return stores.ErrNotFound
	}
	c.Title = title
	return nil
}

func (m *memStore) SaveFeedback(fb *stores.Feedback) error {
	m.feedback = append(m.feedback, *fb)
	return nil
}

func (m *memStore) Connect() error { return nil }
func (m *memStore) Close() error   { return nil }
func (m *memStore) DB() *gorm.DB   { return nil }
func (m *memStore) Ping() error    { return nil }

func (m *memStore) aiSaves() []stores.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stores.Message
	for _, msg := range m.saves {
		if msg.IsAI {
			out = append(out, msg)
		}
	}
	return out
}

// chunkReader yields one chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// fakeModel serves scripted buffered and streaming completions.
type fakeModel struct {
	mu        sync.Mutex
	chunks    []string
	streamErr error
	responses []*openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
	streamed  []openai.ChatCompletionRequest
	block     chan struct{}
}

func (f *fakeModel) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.responses) && f.responses[i] != nil {
		return f.responses[i], nil
	}
	return nil, errors.New("no scripted response")
}

func (f *fakeModel) Stream(ctx context.Context, req openai.ChatCompletionRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.streamed = append(f.streamed, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	chunks := append([]string(nil), f.chunks...)
	return io.NopCloser(&chunkReader{chunks: chunks}), nil
}

func textResponse(content string) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: content}}}}
}

// recordingSink collects events written to it.
type recordingSink struct {
	mu     sync.Mutex
	events []streaming.Event
	failAt int
}

func (s *recordingSink) WriteEvent(ev streaming.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("client disconnected")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var acc streaming.Accumulator
	for _, ev := range s.events {
		acc.Add(ev)
	}
	return acc.String()
}
