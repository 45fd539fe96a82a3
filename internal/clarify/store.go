package clarify

import (
	"sync"
	"time"

	"github.com/alexanderramin/hashi/internal/command"
)

// PendingState is a partially-completed command awaiting required fields
// from the same caller. Missing holds the outstanding field names in
// declaration order; the first entry is the one currently being asked for.
type PendingState struct {
	Command  command.Command
	Missing  []string
	StoredAt time.Time
}

// PendingStore keeps at most one PendingState per caller identity.
type PendingStore interface {
	Get(callerID string) (PendingState, bool)
	Put(callerID string, state PendingState)
	Delete(callerID string)
	Len() int
}

// memoryStore is a mutex-guarded keyed map with per-entry TTL. Expiry is
// lazy: entries past the TTL are dropped on access, no background sweeper.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]PendingState
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-process PendingStore. A ttl of zero disables
// expiry. now supplies the clock; nil means time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) PendingStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		entries: make(map[string]PendingState),
		ttl:     ttl,
		now:     now,
	}
}

func (s *memoryStore) Get(callerID string) (PendingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[callerID]
	if !ok {
		return PendingState{}, false
	}
	if s.ttl > 0 && s.now().Sub(state.StoredAt) > s.ttl {
		delete(s.entries, callerID)
		return PendingState{}, false
	}
	return state, true
}

func (s *memoryStore) Put(callerID string, state PendingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[callerID] = state
}

func (s *memoryStore) Delete(callerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, callerID)
}

func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
