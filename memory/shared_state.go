package memory

import "sync"

// SharedState is a concurrency-safe key/value scratchpad agents use to pass
// data to each other outside the message history. Last write wins; its
// lifecycle is independent of message eviction.
type SharedState struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSharedState creates an empty scratchpad.
func NewSharedState() *SharedState {
	return &SharedState{values: make(map[string]any)}
}

// Set stores a value under key, replacing any previous value.
func (s *SharedState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value for key and whether it exists.
func (s *SharedState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns all stored keys in unspecified order.
func (s *SharedState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Delete removes key if present.
func (s *SharedState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Clear removes all values.
func (s *SharedState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
}
