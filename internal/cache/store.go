// Package cache provides a time-bounded key/value store for fetched market data.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Store maps keys to values that expire after a fixed TTL. It is safe for concurrent use.
type Store[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Store. A non-positive ttl disables caching: Get always misses.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		items: make(map[string]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source.
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	s.now = now
	return s
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !s.now().Before(e.expires) {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the TTL.
func (s *Store[V]) Set(key string, value V) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry[V]{value: value, expires: s.now().Add(s.ttl)}
}

// Purge drops every expired entry and returns how many were removed.
func (s *Store[V]) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.items {
		if !now.Before(e.expires) {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
