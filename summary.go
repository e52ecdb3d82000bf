package campaign

import "time"

// SessionSummary is a compact view of a session's checkpoint, suitable for
// listings.
type SessionSummary struct {
	SessionID string        `json:"session_id"`
	GraphName string        `json:"graph_name"`
	Status    SessionStatus `json:"status"`
	NextNode  NodeName      `json:"next_node,omitempty"`
	Goal      string        `json:"goal"`
	StartTime time.Time     `json:"start_time"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSessionSummary builds a summary from a checkpoint.
func NewSessionSummary(checkpoint *Checkpoint) *SessionSummary {
	summary := &SessionSummary{
		SessionID: checkpoint.SessionID,
		GraphName: checkpoint.GraphName,
		Status:    checkpoint.Status,
		NextNode:  checkpoint.NextNode,
		StartTime: checkpoint.StartTime,
		UpdatedAt: checkpoint.UpdatedAt,
	}
	if checkpoint.State != nil {
		summary.Goal = checkpoint.State.Goal
	}
	return summary
}
