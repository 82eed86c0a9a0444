package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/openagi/pkg/domain"
)

// Store implements ports.WorkspaceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Workflow
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Workflow),
	}
}

// Save stores a deep copy of the workspace, so later changes by the caller are not visible.
func (s *Store) Save(ctx context.Context, wf *domain.Workflow) error {
	copied := wf.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[wf.ID] = copied
	return nil
}

// Load retrieves the workspace from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.data[id]
	if !ok {
		return nil, domain.ErrWorkspaceNotFound
	}

	// Copy on read so the caller can't mutate store state directly by pointer
	return wf.Snapshot(), nil
}

// Delete removes the workspace.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns live workspaces, sorted by ID.
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
