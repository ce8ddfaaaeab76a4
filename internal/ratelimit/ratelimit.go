package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most limit actions per key within each fixed window.
// A limit of zero or less disables limiting.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	resetTime time.Time
}

// New creates an in-memory limiter
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records an action for key. When the action is refused it also
// reports how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]

	if !ok || !now.Before(b.resetTime) {
		l.buckets[key] = &bucket{
			count:     1,
			resetTime: now.Add(l.window),
		}
		return true, 0
	}

	if b.count >= l.limit {
		return false, b.resetTime.Sub(now)
	}

	b.count++
	return true, 0
}

// Remaining returns the number of actions key may still take in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !l.now().Before(b.resetTime) {
		return l.limit
	}
	return max(l.limit-b.count, 0)
}

// Forget drops the bucket for key.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// Cleanup removes expired buckets and returns how many it removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if !now.Before(b.resetTime) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
