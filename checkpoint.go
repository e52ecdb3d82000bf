package campaign

import (
	"time"

	"go.jetify.com/typeid"
)

// SessionStatus is the machine state recorded in a checkpoint.
type SessionStatus string

const (
	// StatusRunning means the step loop persisted mid-flight and will
	// continue to the next node; also the state a crashed session resumes
	// from.
	StatusRunning SessionStatus = "running"

	// StatusPaused means the engine stopped before an interrupt point and
	// is waiting for resume.
	StatusPaused SessionStatus = "paused"

	// StatusCompleted means the session reached a terminal route.
	StatusCompleted SessionStatus = "completed"
)

// NewCheckpointID returns a new typed ID for checkpoint identification.
func NewCheckpointID() string {
	id, err := typeid.WithPrefix("chk")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Checkpoint is the durable snapshot a session can be resumed from. Exactly
// one checkpoint exists per session; each committed step overwrites it.
// NextNode always names a node that has not executed yet, or is empty once
// the session is terminal.
type Checkpoint struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	GraphName string         `json:"graph_name"`
	Status    SessionStatus  `json:"status"`
	State     *WorkflowState `json:"state"`
	NextNode  NodeName       `json:"next_node,omitempty"`
	Version   int64          `json:"version"`
	StartTime time.Time      `json:"start_time,omitzero"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// Copy returns a deep copy of the checkpoint.
func (c *Checkpoint) Copy() *Checkpoint {
	clone := *c
	clone.State = c.State.Clone()
	return &clone
}

// Terminal reports whether the session has completed.
func (c *Checkpoint) Terminal() bool {
	return c.Status == StatusCompleted
}
