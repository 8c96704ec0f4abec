package mock

import (
	"context"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
// Prompts are recorded in call order so tests can inspect what the
// pipeline sent to the model.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Generate returns Response.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// GenerateJSONFunc is called by GenerateJSON if set.
	// If nil, GenerateJSON returns JSONResponse.
	GenerateJSONFunc func(ctx context.Context, prompt string) (string, error)

	// Response is the default free-text reply.
	Response string

	// JSONResponse is the default structured reply.
	JSONResponse string

	mu      sync.Mutex
	prompts []string
}

// NewMockGenerator creates a mock generator answering with a fixed reply.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// Generate records prompt and returns the injected or default reply.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.record(prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return m.Response, nil
}

// GenerateJSON records prompt and returns the injected or default JSON reply.
func (m *MockGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt)
	}
	return m.JSONResponse, nil
}

// Prompts returns a copy of every prompt received so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns the number of times any method was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Reset clears recorded prompts and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.GenerateFunc = nil
	m.GenerateJSONFunc = nil
}

func (m *MockGenerator) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}
