package otp

import (
	"sync"
	"time"
)

type registryEntry struct {
	flow    *Flow
	touched time.Time
}

// Registry keeps one Flow per browser tab so the HTTP surface can carry a
// login attempt across requests. Flows untouched for ttl are dropped.
type Registry struct {
	mu    sync.Mutex
	flows map[string]*registryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry builds a Registry. ttl <= 0 keeps flows until deleted.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		flows: make(map[string]*registryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the flow for key, creating it with create when absent or expired.
func (r *Registry) Get(key string, create func() *Flow) *Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if entry, ok := r.flows[key]; ok {
		entry.touched = r.now()
		return entry.flow
	}
	flow := create()
	r.flows[key] = &registryEntry{flow: flow, touched: r.now()}
	return flow
}

// Peek returns the flow for key without creating one.
func (r *Registry) Peek(key string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	entry, ok := r.flows[key]
	if !ok {
		return nil, false
	}
	entry.touched = r.now()
	return entry.flow, true
}

// Delete drops the flow for key.
func (r *Registry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, key)
}

// Len returns the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.flows)
}

func (r *Registry) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for key, entry := range r.flows {
		if entry.touched.Before(cutoff) {
			delete(r.flows, key)
		}
	}
}
