// Package dedup suppresses repeat processing of requests that carry the same
// caller-supplied idempotency key.
package dedup

import (
	"sync"
	"time"
)

// Store remembers idempotency keys it has seen, with per-entry TTL so the
// set does not grow for the life of the process.
type Store struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a seen-keys store. A ttl of zero disables expiry. now
// supplies the clock; nil means time.Now.
func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  now,
	}
}

// FirstUse atomically records key and reports whether this is its first use
// within the TTL window. Marking happens at the top of request processing so
// two concurrent requests with the same key resolve to exactly one winner.
// An empty key always counts as a first use.
func (s *Store) FirstUse(key string) bool {
	if key == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.now()
	if at, ok := s.seen[key]; ok {
		if s.ttl == 0 || current.Sub(at) <= s.ttl {
			return false
		}
	}
	s.seen[key] = current
	return true
}

// Len reports the number of tracked keys, counting expired entries that have
// not been touched since expiry.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
