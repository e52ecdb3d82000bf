package campaign

import (
	"context"
	"time"
)

// ExecutionCallbacks defines the callback interface for engine lifecycle
// events. Callbacks run synchronously inside the step loop; keep them fast.
type ExecutionCallbacks interface {
	// Session-level callbacks, fired when a Start/Resume call enters and
	// leaves the step loop.
	BeforeSession(ctx context.Context, event *SessionEvent)
	AfterSession(ctx context.Context, event *SessionEvent)

	// Node-level callbacks
	BeforeNode(ctx context.Context, event *NodeEvent)
	AfterNode(ctx context.Context, event *NodeEvent)
}

// SessionEvent provides context for session-level callbacks.
type SessionEvent struct {
	SessionID string
	GraphName string
	Status    SessionStatus
	NextNode  NodeName
	Goal      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Error     error
}

// NodeEvent provides context for node-level callbacks.
type NodeEvent struct {
	SessionID string
	GraphName string
	Node      NodeName
	State     *WorkflowState
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Error     error
}

// BaseExecutionCallbacks provides a default implementation that does
// nothing. Embed it to implement only the callbacks you care about.
type BaseExecutionCallbacks struct{}

func (n *BaseExecutionCallbacks) BeforeSession(ctx context.Context, event *SessionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterSession(ctx context.Context, event *SessionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeNode(ctx context.Context, event *NodeEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterNode(ctx context.Context, event *NodeEvent) {
	// noop
}

// CallbackChain fans events out to multiple callback implementations in
// order.
type CallbackChain struct {
	callbacks []ExecutionCallbacks
}

// NewCallbackChain creates a new callback chain.
func NewCallbackChain(callbacks ...ExecutionCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain.
func (c *CallbackChain) Add(callback ExecutionCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeSession(ctx context.Context, event *SessionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeSession(ctx, event)
	}
}

func (c *CallbackChain) AfterSession(ctx context.Context, event *SessionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterSession(ctx, event)
	}
}

func (c *CallbackChain) BeforeNode(ctx context.Context, event *NodeEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeNode(ctx, event)
	}
}

func (c *CallbackChain) AfterNode(ctx context.Context, event *NodeEvent) {
	for _, callback := range c.callbacks {
		callback.AfterNode(ctx, event)
	}
}
