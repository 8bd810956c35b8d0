package session

import (
	"sync"
	"time"
)

type memoryScope struct {
	values  map[string]string
	touched time.Time
}

// MemoryBackend keeps scopes in process memory and forgets a scope after it
// has been idle for ttl. It backs the tab-scoped contact slot.
type MemoryBackend struct {
	mu     sync.Mutex
	scopes map[string]*memoryScope
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryBackend builds a MemoryBackend. ttl <= 0 disables expiry.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		scopes: make(map[string]*memoryScope),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (b *MemoryBackend) WithClock(now func() time.Time) *MemoryBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

// Reset forgets every scope.
func (b *MemoryBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scopes = make(map[string]*memoryScope)
}

// Len returns the number of live scopes.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	return len(b.scopes)
}

// Scope implements Backend.
func (b *MemoryBackend) Scope(id string) Storage {
	return &memoryStorage{backend: b, id: id}
}

func (b *MemoryBackend) sweepLocked() {
	if b.ttl <= 0 {
		return
	}
	cutoff := b.now().Add(-b.ttl)
	for id, sc := range b.scopes {
		if sc.touched.Before(cutoff) {
			delete(b.scopes, id)
		}
	}
}

type memoryStorage struct {
	backend *MemoryBackend
	id      string
}

func (s *memoryStorage) Get(key string) (string, bool) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()

	sc, ok := b.scopes[s.id]
	if !ok {
		return "", false
	}
	sc.touched = b.now()
	value, ok := sc.values[key]
	return value, ok
}

func (s *memoryStorage) Set(key, value string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()

	sc, ok := b.scopes[s.id]
	if !ok {
		sc = &memoryScope{values: make(map[string]string)}
		b.scopes[s.id] = sc
	}
	sc.touched = b.now()
	sc.values[key] = value
	return nil
}

func (s *memoryStorage) Remove(key string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	sc, ok := b.scopes[s.id]
	if !ok {
		return nil
	}
	delete(sc.values, key)
	if len(sc.values) == 0 {
		delete(b.scopes, s.id)
	}
	return nil
}
