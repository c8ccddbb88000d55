package router

import (
	"sync"
	"time"
)

const (
	defaultDedupWindow   = 10 * time.Minute
	defaultDedupCapacity = 4096
)

// dedupWindow remembers recently admitted event IDs so that a redelivered
// event is dispatched at most once. It is bounded both in time and in
// size; the oldest entry is evicted first.
type dedupWindow struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	seen     map[string]time.Time
	order    []string
	now      func() time.Time
}

func newDedupWindow(window time.Duration, capacity int) *dedupWindow {
	if window <= 0 {
		window = defaultDedupWindow
	}
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &dedupWindow{
		window:   window,
		capacity: capacity,
		seen:     make(map[string]time.Time, capacity),
		now:      time.Now,
	}
}

// firstSeen records id and reports whether it was not already in the
// window. An empty id is always reported as first seen.
func (d *dedupWindow) firstSeen(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.seen[id]; ok {
		return false
	}
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = now
	d.order = append(d.order, id)
	return true
}

// expire drops entries older than the window. Must be called with mu held.
func (d *dedupWindow) expire(now time.Time) {
	n := 0
	for n < len(d.order) && now.Sub(d.seen[d.order[n]]) > d.window {
		delete(d.seen, d.order[n])
		n++
	}
	if n > 0 {
		d.order = d.order[n:]
	}
}

func (d *dedupWindow) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
