package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store atomically counts requests per identity within a fixed window.
// Incr returns the count after this request and the time remaining in
// the identity's current window. A new window starts at the first
// request and holds its full duration.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

// MemoryStore keeps windows in-process. Suitable for single-instance
// deployments and tests; multi-instance deployments need RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryStore creates an in-process window store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Incr counts one request against the identity's current window
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.expires) {
		w = &memoryWindow{expires: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.expires.Sub(now), nil
}

// Sweep drops expired windows so long-running processes do not leak
// one entry per caller forever.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if now.After(w.expires) {
			delete(s.windows, key)
		}
	}
}
