package emotion

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked. When nil, a
	// fully-neutral result is returned.
	ClassifyFunc func(ctx context.Context, jpeg []byte) ([]Scored, error)

	mu    sync.Mutex
	calls int
}

// Classify invokes ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, jpeg []byte) ([]Scored, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, jpeg)
	}
	return []Scored{{Label: Neutral, Score: 1}}, nil
}

// Calls returns how many times Classify was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
