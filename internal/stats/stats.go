// Package stats defines the counter store shared by every component that
// records usage: the router, the response emitter, and integrations.
//
// Counters are monotonically increasing and keyed by (counter, room,
// module, sub). Increments are commutative; implementations must never
// lose one under concurrent use.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Counter names recorded by the core engine. Integrations may add their own.
const (
	CounterProcessed = "totalProcessedMsgs"
	CounterActivity  = "totalActivity"
	CounterRandom    = "randomFunctions"
	CounterMsgAction = "msgAction"
)

// ServiceName is the AppContext service key a persistent Store registers
// under. When absent, the app falls back to a MemoryStore.
const ServiceName = "stats.store"

// Add errors.
var (
	// ErrInvalidKey indicates a key without a counter name.
	ErrInvalidKey = errors.New("stats: counter name is required")
	// ErrInvalidDelta indicates a zero or negative increment. Counters
	// only grow.
	ErrInvalidDelta = errors.New("stats: delta must be positive")
)

// ValidateAdd checks the arguments of Store.Add. Every Store runs it before
// touching a counter.
func ValidateAdd(key Key, delta int64) error {
	if key.Counter == "" {
		return ErrInvalidKey
	}
	if delta <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDelta, delta)
	}
	return nil
}

// Key identifies one counter cell.
type Key struct {
	Counter string `json:"counter"`
	Room    string `json:"room"`
	Module  string `json:"module,omitempty"`
	Sub     string `json:"sub,omitempty"`
}

// Entry is a counter cell and its current value.
type Entry struct {
	Key
	Value int64 `json:"value"`
}

// Store records and reads counters.
// Implementations must be safe for concurrent use.
type Store interface {
	// Add increments the counter at key by delta, which must be positive.
	Add(ctx context.Context, key Key, delta int64) error

	// Snapshot returns every counter cell for room, or all cells when room
	// is empty, ordered by (room, counter, module, sub).
	Snapshot(ctx context.Context, room string) ([]Entry, error)
}

// Sum totals the values of entries whose counter name is counter.
func Sum(entries []Entry, counter string) int64 {
	var n int64
	for _, e := range entries {
		if e.Counter == counter {
			n += e.Value
		}
	}
	return n
}

// SortEntries orders entries by (room, counter, module, sub).
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Counter != b.Counter {
			return a.Counter < b.Counter
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Sub < b.Sub
	})
}
