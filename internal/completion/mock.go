package completion

import (
	"context"
	"sync"

	"github.com/alanmeadows/chatwidget/internal/chat"
)

// MockClient is a test double for Client.
type MockClient struct {
	mu           sync.Mutex
	DefaultReply string
	Replies      []string // consumed in order before DefaultReply
	Err          error
	Calls        [][]chat.Message

	// Gate, when non-nil, holds every Complete call until a value is received
	// or the channel is closed.
	Gate chan struct{}
	// Started, when non-nil, receives one value as each call begins.
	Started chan struct{}
}

// NewMockClient creates a new MockClient with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{DefaultReply: "Mock assistant reply"}
}

func (m *MockClient) Complete(ctx context.Context, messages []chat.Message) (chat.Message, error) {
	m.mu.Lock()
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	m.Calls = append(m.Calls, copied)
	gate, started := m.Gate, m.Started
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return chat.Message{}, &Failure{Kind: FailureTransport, Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return chat.Message{}, m.Err
	}
	reply := m.DefaultReply
	if len(m.Replies) > 0 {
		reply = m.Replies[0]
		m.Replies = m.Replies[1:]
	}
	return chat.AssistantMessage(reply), nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// GetCalls returns a copy of the transcripts passed to Complete.
func (m *MockClient) GetCalls() [][]chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]chat.Message, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// SetErr sets the error returned by subsequent calls.
func (m *MockClient) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
