package synthesis

import (
	"context"
	"sync"

	"github.com/agenthands/recipemerge/internal/llm"
)

// MockLLMClient replays Responses in order, then keeps returning Response.
// A non-nil entry in Errs at the same index fails that call instead.
type MockLLMClient struct {
	Response  string
	Responses []string
	Errs      []error
	Err       error

	mu       sync.Mutex
	Calls    int
	Requests []llm.Request
}

func (m *MockLLMClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.Calls
	m.Calls++
	m.Requests = append(m.Requests, req)

	if i < len(m.Errs) && m.Errs[i] != nil {
		return "", m.Errs[i]
	}
	if m.Err != nil {
		return "", m.Err
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return m.Response, nil
}

func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
