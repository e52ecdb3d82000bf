package campaign

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemorySessionStore keeps checkpoints in process memory. It is the default
// store and the reference CAS implementation.
type MemorySessionStore struct {
	mutex    sync.RWMutex
	sessions map[string]*Checkpoint
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]*Checkpoint{}}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*Checkpoint, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	checkpoint, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	return checkpoint.Copy(), nil
}

func (s *MemorySessionStore) Put(ctx context.Context, checkpoint *Checkpoint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var current int64
	if existing, ok := s.sessions[checkpoint.SessionID]; ok {
		current = existing.Version
	}
	if checkpoint.Version != current+1 {
		return fmt.Errorf("session %q at version %d, write expected %d: %w",
			checkpoint.SessionID, current, checkpoint.Version-1, ErrVersionConflict)
	}
	s.sessions[checkpoint.SessionID] = checkpoint.Copy()
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ListSessions returns a summary for every stored session, sorted by
// session ID.
func (s *MemorySessionStore) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summaries := make([]*SessionSummary, 0, len(s.sessions))
	for _, checkpoint := range s.sessions {
		summaries = append(summaries, NewSessionSummary(checkpoint))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SessionID < summaries[j].SessionID
	})
	return summaries, nil
}
