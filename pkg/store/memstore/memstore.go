// Package memstore provides an in-process core.SessionStore, used by the
// demo application and by the package tests that exercise the lifecycle
// and hook invariants without a real backend.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agentdrain/agentdrain/pkg/core"
)

// Store is a mutex-guarded, in-process implementation of core.SessionStore.
// Values are round-tripped through encoding/json on both Save and Get so
// callers see the same behavior (e.g. struct field names, time.Time
// formatting) they would against a real out-of-process backend.
type Store struct {
	mu   sync.RWMutex
	data map[core.SessionKey]map[string][]byte
}

// New constructs an empty Store.
func New() *Store {
	return &Store{data: make(map[core.SessionKey]map[string][]byte)}
}

// Save implements core.SessionStore.
func (s *Store) Save(_ context.Context, key core.SessionKey, field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode field %q: %v", core.ErrStoreFailure, field, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.data[key]
	if !ok {
		record = make(map[string][]byte)
		s.data[key] = record
	}
	record[field] = raw
	return nil
}

// Get implements core.SessionStore.
func (s *Store) Get(_ context.Context, key core.SessionKey, field string, out any) (bool, error) {
	s.mu.RLock()
	record, ok := s.data[key]
	if !ok {
		s.mu.RUnlock()
		return false, nil
	}
	raw, ok := record[field]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("%w: decode field %q: %v", core.ErrStoreFailure, field, err)
	}
	return true, nil
}

// Delete implements core.SessionStore.
func (s *Store) Delete(_ context.Context, key core.SessionKey, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.data[key]
	if !ok {
		return nil
	}
	delete(record, field)
	return nil
}

// Exists implements core.SessionStore.
func (s *Store) Exists(_ context.Context, key core.SessionKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.data[key]
	return ok && len(record) > 0, nil
}
