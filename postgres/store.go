// Package postgres provides a SessionStore backed by PostgreSQL, for
// deployments where several engine processes share one checkpoint store. The
// version column backs the compare-and-swap; the database serializes
// concurrent commits so exactly one writer wins each step.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/campaign"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	checkpoint_id TEXT NOT NULL,
	graph_name    TEXT NOT NULL,
	status        TEXT NOT NULL,
	next_node     TEXT NOT NULL,
	version       BIGINT NOT NULL,
	state         JSONB NOT NULL,
	start_time    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
`

// SessionStore persists checkpoints in PostgreSQL.
type SessionStore struct {
	db *sql.DB
}

// Open connects with the given DSN and prepares the schema.
func Open(dsn string) (*SessionStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store, err := NewSessionStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSessionStore wraps an existing connection and prepares the schema.
func NewSessionStore(db *sql.DB) (*SessionStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return &SessionStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*campaign.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint_id, graph_name, status, next_node, version, state, start_time, updated_at
		FROM sessions WHERE session_id = $1`, sessionID)

	var (
		checkpoint campaign.Checkpoint
		status     string
		nextNode   string
		stateJSON  []byte
		startTime  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&checkpoint.ID, &checkpoint.GraphName, &status, &nextNode,
		&checkpoint.Version, &stateJSON, &startTime, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", sessionID, campaign.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	checkpoint.SessionID = sessionID
	checkpoint.Status = campaign.SessionStatus(status)
	checkpoint.NextNode = campaign.NodeName(nextNode)
	checkpoint.StartTime = startTime
	checkpoint.UpdatedAt = updatedAt
	checkpoint.State = &campaign.WorkflowState{}
	if err := json.Unmarshal(stateJSON, checkpoint.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &checkpoint, nil
}

func (s *SessionStore) Put(ctx context.Context, checkpoint *campaign.Checkpoint) error {
	stateJSON, err := json.Marshal(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var result sql.Result
	if checkpoint.Version == 1 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO sessions (session_id, checkpoint_id, graph_name, status, next_node, version, state, start_time, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id) DO NOTHING`,
			checkpoint.SessionID, checkpoint.ID, checkpoint.GraphName,
			string(checkpoint.Status), string(checkpoint.NextNode),
			checkpoint.Version, stateJSON,
			checkpoint.StartTime, checkpoint.UpdatedAt)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE sessions
			SET checkpoint_id = $1, status = $2, next_node = $3, version = $4, state = $5, updated_at = $6
			WHERE session_id = $7 AND version = $8`,
			checkpoint.ID, string(checkpoint.Status), string(checkpoint.NextNode),
			checkpoint.Version, stateJSON, checkpoint.UpdatedAt,
			checkpoint.SessionID, checkpoint.Version-1)
	}
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check write result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q version %d: %w",
			checkpoint.SessionID, checkpoint.Version, campaign.ErrVersionConflict)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns a summary of every stored session, most recently
// updated first.
func (s *SessionStore) ListSessions(ctx context.Context) ([]*campaign.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, graph_name, status, next_node, state, start_time, updated_at
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []*campaign.SessionSummary
	for rows.Next() {
		var (
			summary   campaign.SessionSummary
			status    string
			nextNode  string
			stateJSON []byte
		)
		if err := rows.Scan(&summary.SessionID, &summary.GraphName, &status,
			&nextNode, &stateJSON, &summary.StartTime, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		summary.Status = campaign.SessionStatus(status)
		summary.NextNode = campaign.NodeName(nextNode)
		var state campaign.WorkflowState
		if err := json.Unmarshal(stateJSON, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state for session %q: %w", summary.SessionID, err)
		}
		summary.Goal = state.Goal
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}
