package capture

import "sync"

// Mock is a test frame source returning canned JPEG data.
type Mock struct {
	// CaptureFunc overrides the default canned response
	CaptureFunc func() ([]byte, error)

	// Frame is returned when CaptureFunc is nil
	Frame []byte

	mu       sync.Mutex
	captures int
	closed   bool
}

// CaptureFrame returns the canned frame or calls CaptureFunc.
func (m *Mock) CaptureFrame() ([]byte, error) {
	m.mu.Lock()
	m.captures++
	m.mu.Unlock()

	if m.CaptureFunc != nil {
		return m.CaptureFunc()
	}
	return m.Frame, nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Captures returns the number of CaptureFrame calls.
func (m *Mock) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
