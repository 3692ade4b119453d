// Package memory provides a process-local StateStore, used by tests and when
// STATE_BACKEND=memory.
package memory

import (
	"context"
	"sync"

	"datalens/domain/core"
)

// StateStore keeps notes and tour flags in maps
type StateStore struct {
	mu    sync.RWMutex
	notes map[core.DatasetID]string
	tours map[string]bool
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{
		notes: make(map[core.DatasetID]string),
		tours: make(map[string]bool),
	}
}

func (s *StateStore) LoadNotes(ctx context.Context, id core.DatasetID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes, ok := s.notes[id]
	if !ok {
		return "", core.ErrNotesNotFound
	}
	return notes, nil
}

func (s *StateStore) SaveNotes(ctx context.Context, id core.DatasetID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[id] = notes
	return nil
}

func (s *StateStore) TourSeen(ctx context.Context, tour string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tours[tour], nil
}

func (s *StateStore) MarkTourSeen(ctx context.Context, tour string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours[tour] = true
	return nil
}

func (s *StateStore) Close() error { return nil }
