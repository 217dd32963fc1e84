package mocks

import (
	"context"
	"sync"

	"shiftbook-backend/models"
)

type MockReminderRecorder struct {
	mu      sync.Mutex
	entries []models.ReminderLog
	err     error
}

func NewMockReminderRecorder() *MockReminderRecorder {
	return &MockReminderRecorder{}
}

func (m *MockReminderRecorder) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockReminderRecorder) Record(ctx context.Context, entry *models.ReminderLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockReminderRecorder) Entries() []models.ReminderLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ReminderLog(nil), m.entries...)
}
