package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryWindow is an in-process rolling window: a mutex-guarded timestamp
// ring per key. Suitable for a single instance; use the Redis window to
// share the counter across instances.
type MemoryWindow struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{hits: make(map[string][]time.Time), now: time.Now}
}

// NewMemoryWindowWithClock is test-only for deterministic timestamps.
func NewMemoryWindowWithClock(now func() time.Time) *MemoryWindow {
	return &MemoryWindow{hits: make(map[string][]time.Time), now: now}
}

func (w *MemoryWindow) Allow(_ context.Context, key string, limit int, per time.Duration) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-per)

	hits := w.hits[key]
	live := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}
	if len(live) >= limit {
		w.hits[key] = live
		return false, nil
	}
	w.hits[key] = append(live, now)
	return true, nil
}
