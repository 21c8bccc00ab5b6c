package utils

import "sync"

// KeySet is a set that remembers insertion order. Used to deduplicate link
// pairs before extraction.
type KeySet[K comparable] struct {
	mu    sync.Mutex
	seen  map[K]struct{}
	order []K
}

// NewKeySet creates an empty KeySet.
func NewKeySet[K comparable]() *KeySet[K] {
	return &KeySet[K]{seen: make(map[K]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet[K]) Add(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[k]; exists {
		return false
	}
	s.seen[k] = struct{}{}
	s.order = append(s.order, k)
	return true
}

// Contains returns true if the key has already been added.
func (s *KeySet[K]) Contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.seen[k]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet[K]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Keys returns the keys in first-seen order.
func (s *KeySet[K]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]K, len(s.order))
	copy(out, s.order)
	return out
}
