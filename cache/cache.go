package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time; tests inject a fake one so TTL
// behavior is deterministic instead of sleep-based.
type Clock func() time.Time

type entry struct {
	value      any
	insertedAt time.Time
}

// Store is a keyed TTL cache. Entries older than the TTL are treated
// as absent on read and overwritten on write.
type Store struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock Clock
	data  map[string]entry
}

func New(ttl time.Duration, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		ttl:   ttl,
		clock: clock,
		data:  make(map[string]entry),
	}
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.clock().Sub(e.insertedAt) >= s.ttl {
		return nil, false
	}
	return e.value, true
}

func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.data[key] = entry{value: value, insertedAt: s.clock()}
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}
