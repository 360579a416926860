// Package memory provides a process-local key-value medium for tests and
// ephemeral sessions.
package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"trainingcore/pkg/domain"
)

var _ domain.KeyValueStore = (*Store)(nil)

// Store keeps values in a map guarded by a mutex. Values are copied on the
// way in and out so callers never share buffers with the store.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Driver implements domain.KeyValueStore.
func (s *Store) Driver() domain.Driver { return domain.DriverMemory }

// Get implements domain.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, domain.ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set implements domain.KeyValueStore.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return domain.ErrInvalidKey
	}
	s.mu.Lock()
	s.values[key] = bytes.Clone(value)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}

// Close implements domain.KeyValueStore.
func (s *Store) Close() error { return nil }
