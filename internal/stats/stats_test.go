package stats

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMemoryStore_ConcurrentAddsAreNotLost(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	key := Key{Counter: CounterProcessed, Room: "!a"}

	const workers, perWorker = 16, 250
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_ = s.Add(context.Background(), key, 1)
			}
		}()
	}
	wg.Wait()

	if got := s.Get(key); got != workers*perWorker {
		t.Errorf("Get() = %d, want %d", got, workers*perWorker)
	}
}

func TestMemoryStore_RejectsEmptyCounter(t *testing.T) {
	t.Parallel()
	err := NewMemoryStore().Add(context.Background(), Key{Room: "!a"}, 1)
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Add() error = %v, want ErrInvalidKey", err)
	}
}

func TestMemoryStore_RejectsNonPositiveDelta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	key := Key{Counter: CounterProcessed, Room: "!a"}
	if err := s.Add(ctx, key, 3); err != nil {
		t.Fatalf("Add(3) error: %v", err)
	}

	for _, delta := range []int64{-5, 0} {
		if err := s.Add(ctx, key, delta); !errors.Is(err, ErrInvalidDelta) {
			t.Errorf("Add(%d) error = %v, want ErrInvalidDelta", delta, err)
		}
	}
	if got := s.Get(key); got != 3 {
		t.Errorf("Get() = %d, want 3: counters never decrease", got)
	}
}

func TestMemoryStore_SnapshotFiltersAndSorts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Add(ctx, Key{Counter: CounterProcessed, Room: "!b"}, 1)
	_ = s.Add(ctx, Key{Counter: CounterActivity, Room: "!a", Module: "universal", Sub: "sendMsg"}, 2)
	_ = s.Add(ctx, Key{Counter: CounterProcessed, Room: "!a"}, 3)

	all, err := s.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].Room != "!a" || all[0].Counter != CounterActivity {
		t.Errorf("all[0] = %+v, want !a/totalActivity first", all[0])
	}

	roomA, _ := s.Snapshot(ctx, "!a")
	if len(roomA) != 2 {
		t.Fatalf("len(roomA) = %d, want 2", len(roomA))
	}
	if got := Sum(roomA, CounterProcessed); got != 3 {
		t.Errorf("Sum(processed) = %d, want 3", got)
	}
	if got := Sum(all, CounterProcessed); got != 4 {
		t.Errorf("Sum(processed, all rooms) = %d, want 4", got)
	}
}

func TestInstrumented_MirrorsIncrements(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s, err := NewInstrumented(NewMemoryStore(), reg)
	if err != nil {
		t.Fatalf("NewInstrumented() error: %v", err)
	}

	ctx := context.Background()
	key := Key{Counter: CounterActivity, Room: "!a", Module: "reacts", Sub: "sendEmote"}
	_ = s.Add(ctx, key, 1)
	_ = s.Add(ctx, Key{Counter: CounterActivity, Room: "!b", Module: "reacts", Sub: "sendEmote"}, 1)

	got := testutil.ToFloat64(s.counter.WithLabelValues(CounterActivity, "reacts", "sendEmote"))
	if got != 2 {
		t.Errorf("prometheus counter = %v, want 2", got)
	}

	entries, _ := s.Snapshot(ctx, "!a")
	if len(entries) != 1 || entries[0].Value != 1 {
		t.Errorf("inner snapshot = %+v", entries)
	}
}

func TestInstrumented_FailedAddNotMirrored(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s, err := NewInstrumented(NewMemoryStore(), reg)
	if err != nil {
		t.Fatalf("NewInstrumented() error: %v", err)
	}
	if err := s.Add(context.Background(), Key{}, 1); err == nil {
		t.Fatal("expected error for empty key")
	}
	if n := testutil.CollectAndCount(s.counter); n != 0 {
		t.Errorf("collected %d series, want 0", n)
	}
}

func TestInstrumented_RejectsNegativeDelta(t *testing.T) {
	t.Parallel()
	inner := NewMemoryStore()
	s, err := NewInstrumented(inner, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewInstrumented() error: %v", err)
	}

	ctx := context.Background()
	key := Key{Counter: CounterActivity, Room: "!a", Module: "reacts", Sub: "sendEmote"}
	_ = s.Add(ctx, key, 3)
	if err := s.Add(ctx, key, -5); !errors.Is(err, ErrInvalidDelta) {
		t.Fatalf("Add(-5) error = %v, want ErrInvalidDelta", err)
	}
	if got := inner.Get(key); got != 3 {
		t.Errorf("inner value = %d, want 3", got)
	}
	if got := testutil.ToFloat64(s.counter.WithLabelValues(CounterActivity, "reacts", "sendEmote")); got != 3 {
		t.Errorf("prometheus counter = %v, want 3", got)
	}
}

func TestNewInstrumented_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	if _, err := NewInstrumented(NewMemoryStore(), reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewInstrumented(NewMemoryStore(), reg); err == nil {
		t.Error("second registration should fail")
	}
}
