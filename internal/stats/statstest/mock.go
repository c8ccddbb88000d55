// Package statstest provides test doubles for the stats package.
package statstest

import (
	"context"
	"sync"

	"github.com/flemzord/catbot/internal/stats"
)

// MockStore records every Add call and delegates reads to an in-memory
// store. Set AddFunc to inject failures.
type MockStore struct {
	mu    sync.Mutex
	adds  []stats.Key
	inner *stats.MemoryStore

	// AddFunc, if set, is called before recording. A non-nil error is
	// returned and the call is not recorded.
	AddFunc func(ctx context.Context, key stats.Key, delta int64) error
}

// Compile-time interface check.
var _ stats.Store = (*MockStore)(nil)

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{inner: stats.NewMemoryStore()}
}

// Add implements stats.Store.
func (m *MockStore) Add(ctx context.Context, key stats.Key, delta int64) error {
	if m.AddFunc != nil {
		if err := m.AddFunc(ctx, key, delta); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.adds = append(m.adds, key)
	m.mu.Unlock()
	return m.inner.Add(ctx, key, delta)
}

// Snapshot implements stats.Store.
func (m *MockStore) Snapshot(ctx context.Context, room string) ([]stats.Entry, error) {
	return m.inner.Snapshot(ctx, room)
}

// Adds returns a copy of every key passed to Add, in call order.
func (m *MockStore) Adds() []stats.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]stats.Key, len(m.adds))
	copy(cp, m.adds)
	return cp
}

// Get returns the current value of key.
func (m *MockStore) Get(key stats.Key) int64 {
	return m.inner.Get(key)
}

// Count returns the number of Add calls for the given counter name.
func (m *MockStore) Count(counter string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.adds {
		if k.Counter == counter {
			n++
		}
	}
	return n
}
