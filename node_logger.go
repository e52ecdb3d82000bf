package campaign

import (
	"context"
	"time"
)

// NodeLogEntry records a single node execution.
type NodeLogEntry struct {
	SessionID string        `json:"session_id"`
	Node      NodeName      `json:"node"`
	Wrote     []Field       `json:"wrote,omitempty"`
	NextNode  NodeName      `json:"next_node,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NodeLogger defines the node execution logging interface.
type NodeLogger interface {
	// LogNode logs a completed node execution.
	LogNode(ctx context.Context, entry *NodeLogEntry) error

	// GetNodeHistory retrieves the node log for a session.
	GetNodeHistory(ctx context.Context, sessionID string) ([]*NodeLogEntry, error)
}
