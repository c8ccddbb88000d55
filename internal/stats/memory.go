package stats

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-process Store. Counters are lost on
// restart; use the stats.sqlite module for persistence.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[Key]int64
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[Key]int64)}
}

// Add implements Store.
func (s *MemoryStore) Add(_ context.Context, key Key, delta int64) error {
	if err := ValidateAdd(key, delta); err != nil {
		return err
	}
	s.mu.Lock()
	s.counts[key] += delta
	s.mu.Unlock()
	return nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context, room string) ([]Entry, error) {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.counts))
	for k, v := range s.counts {
		if room != "" && k.Room != room {
			continue
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	s.mu.Unlock()

	SortEntries(out)
	return out, nil
}

// Get returns the value of a single counter cell.
func (s *MemoryStore) Get(key Key) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}
