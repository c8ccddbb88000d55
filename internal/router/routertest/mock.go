// Package routertest provides mock implementations of router interfaces for testing.
package routertest

import (
	"context"
	"sync"

	"github.com/flemzord/catbot/internal/router"
)

// MockHandler records invocations and optionally delegates to HandleFunc.
type MockHandler struct {
	ID         string
	Disabled   bool
	HandleFunc func(ctx context.Context, inv router.Invocation) error

	mu    sync.Mutex
	calls []router.Invocation
}

// Name implements router.Handler.
func (m *MockHandler) Name() string { return m.ID }

// Enabled implements router.Optional.
func (m *MockHandler) Enabled() bool { return !m.Disabled }

// Handle records the invocation and delegates to HandleFunc if set.
func (m *MockHandler) Handle(ctx context.Context, inv router.Invocation) error {
	m.mu.Lock()
	m.calls = append(m.calls, inv)
	m.mu.Unlock()
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, inv)
	}
	return nil
}

// Calls returns a copy of all recorded invocations.
// Safe for concurrent use.
func (m *MockHandler) Calls() []router.Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]router.Invocation, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns the number of recorded invocations.
func (m *MockHandler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockReactor records invocations and optionally delegates to ReactFunc.
type MockReactor struct {
	ID        string
	ReactFunc func(ctx context.Context, inv router.Invocation) error

	mu    sync.Mutex
	count int
}

// Name implements router.Reactor.
func (m *MockReactor) Name() string { return m.ID }

// React records the call and delegates to ReactFunc if set.
func (m *MockReactor) React(ctx context.Context, inv router.Invocation) error {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
	if m.ReactFunc != nil {
		return m.ReactFunc(ctx, inv)
	}
	return nil
}

// CallCount returns the number of recorded calls.
func (m *MockReactor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Sequence returns a Sampler.Rand source that yields values in order and
// then repeats the last one.
func Sequence(values ...float64) func() float64 {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

// Interface guards.
var (
	_ router.Handler  = (*MockHandler)(nil)
	_ router.Optional = (*MockHandler)(nil)
	_ router.Reactor  = (*MockReactor)(nil)
)
