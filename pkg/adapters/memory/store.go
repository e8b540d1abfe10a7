package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/livehost/pkg/domain"
)

// Store implements ports.StatusStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Status
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Status),
	}
}

// Save persists the status in memory. Status is a value type, so the stored copy is
// isolated from the caller.
func (s *Store) Save(ctx context.Context, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[status.HostID] = status
	return nil
}

// Load retrieves the status from memory.
func (s *Store) Load(ctx context.Context, hostID string) (domain.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.data[hostID]
	if !ok {
		return domain.Status{}, domain.ErrStatusNotFound
	}
	return status, nil
}

// Delete removes the status.
func (s *Store) Delete(ctx context.Context, hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hostID)
	return nil
}

// List returns known host IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
