package ai

import (
	"context"
	"sync"
)

// MockResponse is a canned reply for MockGenerator.
type MockResponse struct {
	Text string
	Err  error
}

// MockGenerator returns canned responses in FIFO order and records requests.
// Once the queue is empty it fails with KindUnavailable.
type MockGenerator struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockGenerator creates a mock with the given responses.
func NewMockGenerator(responses ...MockResponse) *MockGenerator {
	return &MockGenerator{responses: responses}
}

// Push appends more responses.
func (m *MockGenerator) Push(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: KindTimeout, Err: err}
	}
	if len(m.responses) == 0 {
		return "", &Error{Kind: KindUnavailable}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request.
func (m *MockGenerator) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
