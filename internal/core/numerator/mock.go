package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to get predictable references.
type MockGenerator struct {
	NextFunc func(ctx context.Context, period time.Time) (string, error)

	mu    sync.Mutex
	calls int
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, period time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, period)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return fmt.Sprintf("BR-MOCK-%03d", m.calls), nil
}

// Calls returns how many references were issued by the default behavior.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
