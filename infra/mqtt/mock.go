package mqtt

import (
	"context"
	"fmt"
	"sync"
)

// MockNotifier records published runs. It is used in tests and when
// publishing is disabled.
type MockNotifier struct {
	mu   sync.Mutex
	Runs []RunMessage
	Fail bool
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

// PublishRun records the message or fails when configured to.
func (m *MockNotifier) PublishRun(_ context.Context, msg RunMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Runs = append(m.Runs, msg)
	return nil
}

// Published returns a copy of the recorded runs.
func (m *MockNotifier) Published() []RunMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunMessage(nil), m.Runs...)
}

func (m *MockNotifier) Close() {}
