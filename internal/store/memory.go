package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Ensure MemoryStore implements the interface
var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore keeps token records in a mutex-guarded map. Suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*TokenRecord // map["user:provider"] = record
}

// NewMemoryStore creates a new in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*TokenRecord),
	}
}

func makeKey(userID, providerID string) string {
	return userID + ":" + providerID
}

// Get retrieves the record for a (user, provider) pair
func (s *MemoryStore) Get(ctx context.Context, userID, providerID string) (*TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[makeKey(userID, providerID)]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Put stores or replaces the record for a (user, provider) pair
func (s *MemoryStore) Put(ctx context.Context, userID, providerID string, record *TokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[makeKey(userID, providerID)] = &copied
	return nil
}

// Delete removes the record for a (user, provider) pair
func (s *MemoryStore) Delete(ctx context.Context, userID, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, makeKey(userID, providerID))
	return nil
}

// ListProviders returns all providers for which a user has a stored record
func (s *MemoryStore) ListProviders(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var providers []string
	prefix := userID + ":"
	for key := range s.records {
		if after, ok := strings.CutPrefix(key, prefix); ok {
			providers = append(providers, after)
		}
	}
	return providers, nil
}
