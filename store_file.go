package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSessionStore persists checkpoints to disk, one directory per session
// holding a single latest.json. Writes go through a temp file and rename so
// a crash mid-write never leaves a torn checkpoint behind.
type FileSessionStore struct {
	dataDir string
	mutex   sync.Mutex
}

// NewFileSessionStore creates a file-based store rooted at dataDir. An empty
// dataDir defaults to ~/.deepnoodle/campaigns/sessions.
func NewFileSessionStore(dataDir string) (*FileSessionStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".deepnoodle", "campaigns", "sessions")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileSessionStore{dataDir: dataDir}, nil
}

func (s *FileSessionStore) checkpointPath(sessionID string) string {
	return filepath.Join(s.dataDir, sessionID, "latest.json")
}

func (s *FileSessionStore) Get(ctx context.Context, sessionID string) (*Checkpoint, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.read(sessionID)
}

func (s *FileSessionStore) read(sessionID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.checkpointPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

func (s *FileSessionStore) Put(ctx context.Context, checkpoint *Checkpoint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var current int64
	if existing, err := s.read(checkpoint.SessionID); err == nil {
		current = existing.Version
	}
	if checkpoint.Version != current+1 {
		return fmt.Errorf("session %q at version %d, write expected %d: %w",
			checkpoint.SessionID, current, checkpoint.Version-1, ErrVersionConflict)
	}

	sessionDir := filepath.Join(s.dataDir, checkpoint.SessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmpPath := filepath.Join(sessionDir, "latest.json.tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, s.checkpointPath(checkpoint.SessionID)); err != nil {
		return fmt.Errorf("failed to commit checkpoint file: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.RemoveAll(filepath.Join(s.dataDir, sessionID)); err != nil {
		return fmt.Errorf("failed to delete session directory: %w", err)
	}
	return nil
}

// ListSessions returns a summary for every session with a stored checkpoint.
func (s *FileSessionStore) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*SessionSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var summaries []*SessionSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checkpoint, err := s.read(entry.Name())
		if err != nil {
			// Skip sessions we can't read
			continue
		}
		summaries = append(summaries, NewSessionSummary(checkpoint))
	}
	return summaries, nil
}
