package cache

import (
	"sync"
	"time"
)

// Store caches one keyed snapshot loaded in a single fetch. The whole snapshot
// shares one load time; Update changes a single entry without extending it.
type Store[V any] struct {
	mu       sync.RWMutex
	items    map[string]V
	loadedAt time.Time
	ttl      time.Duration
	now      func() time.Time
	clone    func(V) V
}

type Option[V any] func(*Store[V])

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *Store[V]) { s.now = now }
}

// WithClone sets how values are copied in and out of the store.
func WithClone[V any](clone func(V) V) Option[V] {
	return func(s *Store[V]) { s.clone = clone }
}

func New[V any](ttl time.Duration, opts ...Option[V]) *Store[V] {
	s := &Store[V]{
		ttl:   ttl,
		now:   time.Now,
		clone: func(v V) V { return v },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns a copy of the snapshot while it is fresh.
func (s *Store[V]) Load() (map[string]V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.items == nil || s.now().Sub(s.loadedAt) >= s.ttl {
		return nil, false
	}
	out := make(map[string]V, len(s.items))
	for k, v := range s.items {
		out[k] = s.clone(v)
	}
	return out, true
}

// Replace stores a new snapshot and restarts its TTL.
func (s *Store[V]) Replace(items map[string]V) {
	copied := make(map[string]V, len(items))
	for k, v := range items {
		copied[k] = s.clone(v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = copied
	s.loadedAt = s.now()
}

// Update is the single patch entry point. fn receives the cached value and
// returns the replacement and whether to keep it. Missing keys are ignored.
func (s *Store[V]) Update(key string, fn func(V) (V, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[key]
	if !ok {
		return false
	}
	next, keep := fn(s.clone(current))
	if !keep {
		return false
	}
	s.items[key] = next
	return true
}

// Invalidate drops the snapshot.
func (s *Store[V]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.loadedAt = time.Time{}
}
