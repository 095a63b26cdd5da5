package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/royal-court/pkg/generation"
)

// MockGenerator is a mock implementation of generation.Generator for testing
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Track calls for testing
	GenerateCalls []string

	mu sync.Mutex // protects all fields above
}

var _ generation.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock that answers every prompt with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return response, nil
		},
		GenerateCalls: make([]string, 0),
	}
}

// Generate mocks content generation
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateCalls = append(m.GenerateCalls, prompt)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", generation.ErrNoCredential
}

// CallCount returns how many prompts the mock has received.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}
