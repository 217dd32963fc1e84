package mocks

import (
	"context"
	"sync"
)

type MockDispatcher struct {
	mu       sync.Mutex
	messages []string
	err      error
	panicMsg string
	sent     chan string
	// OnSend, if set, runs before Send returns.
	OnSend func(message string)
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{sent: make(chan string, 64)}
}

func (m *MockDispatcher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockDispatcher) PanicWith(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
}

func (m *MockDispatcher) Send(ctx context.Context, message string) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	err, panicMsg, onSend := m.err, m.panicMsg, m.OnSend
	m.mu.Unlock()

	select {
	case m.sent <- message:
	default:
	}
	if onSend != nil {
		onSend(message)
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return err
}

func (m *MockDispatcher) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// Sent delivers each message as it is sent.
func (m *MockDispatcher) Sent() <-chan string {
	return m.sent
}
