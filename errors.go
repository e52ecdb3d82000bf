package campaign

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by engine operations. Callers classify with
// errors.Is.
var (
	// ErrSessionNotFound means no checkpoint exists for the session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionAlreadyStarted means Start was called for a session that
	// already has a checkpoint; use Resume instead.
	ErrSessionAlreadyStarted = errors.New("session already started")

	// ErrSessionComplete means Resume was called on a terminal session.
	ErrSessionComplete = errors.New("session complete")

	// ErrVersionConflict means a checkpoint CAS write lost a race with
	// another writer.
	ErrVersionConflict = errors.New("checkpoint version conflict")

	// ErrFeedbackLimitExceeded means the configured feedback iteration cap
	// was reached; revision requests past the cap are refused.
	ErrFeedbackLimitExceeded = errors.New("feedback limit exceeded")
)

// NodeFailure reports that a node's logic or one of its external service
// calls failed. The failure is recorded in the state's error log and the
// checkpoint is not advanced, so the session stays resumable from the
// failed node.
type NodeFailure struct {
	Node  NodeName
	Cause error
}

func (e *NodeFailure) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Cause)
}

func (e *NodeFailure) Unwrap() error {
	return e.Cause
}

// NewNodeFailure wraps a node error.
func NewNodeFailure(node NodeName, cause error) *NodeFailure {
	return &NodeFailure{Node: node, Cause: cause}
}

// RoutingError reports a router decision the graph cannot dispatch. Routing
// tables are totally ordered, so this is an invariant violation and is
// treated as fatal rather than recorded in the state.
type RoutingError struct {
	Node   NodeName
	Target NodeName
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("router after %q selected unknown node %q", e.Node, e.Target)
}

// InvariantError reports a broken engine-level invariant, such as a
// malformed checkpoint. Fatal; never recorded in the state.
type InvariantError struct {
	Cause string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Cause)
}
