package mocks

import (
	"context"
	"sync"
)

type PublishedEvent struct {
	Key     string
	Payload any
}

type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	err    error
	closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, PublishedEvent{Key: key, Payload: v})
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPublisher) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.events))
	for _, e := range m.events {
		keys = append(keys, e.Key)
	}
	return keys
}
