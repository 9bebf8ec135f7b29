package core

import (
	"errors"
	"io"
	"sort"
	"sync"
)

// Scratch is an agent's private key/value data. Tools use it to cache
// long-lived resources (a process session, for example) for the lifetime of
// the owning agent. It is safe for concurrent access.
//
// Contract:
//   - Set overwrites without closing the previous value
//   - Close closes every value implementing io.Closer and empties the store
type Scratch struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewScratch creates an empty scratch store.
func NewScratch() *Scratch {
	return &Scratch{data: map[string]any{}}
}

// Get returns the value and existence flag for a key.
func (s *Scratch) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a key/value pair.
func (s *Scratch) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes a key. Deleting an absent key is a no-op.
func (s *Scratch) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys returns the stored keys in sorted order.
func (s *Scratch) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases every value implementing io.Closer and clears the store.
// All closers are attempted; their errors are joined.
func (s *Scratch) Close() error {
	s.mu.Lock()
	data := s.data
	s.data = map[string]any{}
	s.mu.Unlock()

	var errs []error
	for _, v := range data {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
