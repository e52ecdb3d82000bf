package campaign

import (
	"context"
)

// NodeName identifies a node within a graph.
type NodeName string

// Node is a named unit of work: a transformation from the current state to a
// partial state update. External side effects are allowed but must tolerate
// re-execution, since a node runs again after a crash if its output was
// never committed to the checkpoint. Commit is exactly-once; execution is
// not.
type Node interface {

	// Name returns the node's name.
	Name() NodeName

	// Writes declares the state fields this node may write. The engine
	// rejects any update touching an undeclared field.
	Writes() []Field

	// Execute runs the node against a snapshot of the current state.
	Execute(ctx context.Context, state *WorkflowState) (*Update, error)
}

// FuncNode adapts a plain function into a Node.
type FuncNode struct {
	name   NodeName
	writes []Field
	fn     func(ctx context.Context, state *WorkflowState) (*Update, error)
}

// NewFuncNode creates a node from a function and its writable-field
// declaration.
func NewFuncNode(name NodeName, writes []Field, fn func(ctx context.Context, state *WorkflowState) (*Update, error)) *FuncNode {
	return &FuncNode{name: name, writes: writes, fn: fn}
}

func (n *FuncNode) Name() NodeName {
	return n.name
}

func (n *FuncNode) Writes() []Field {
	return n.writes
}

func (n *FuncNode) Execute(ctx context.Context, state *WorkflowState) (*Update, error) {
	return n.fn(ctx, state)
}
