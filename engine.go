package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Graph      *Graph
	Store      SessionStore
	Logger     *slog.Logger
	Callbacks  ExecutionCallbacks
	NodeLogger NodeLogger
}

// Engine drives node → router → node stepping for workflow sessions. A call
// to Start or Resume runs nodes synchronously until execution reaches an
// interrupt point or a terminal route, then persists a checkpoint and
// returns. Sessions are independent; the engine holds no per-session state
// between calls, so any number of engines may share one SessionStore.
type Engine struct {
	graph      *Graph
	store      SessionStore
	logger     *slog.Logger
	callbacks  ExecutionCallbacks
	nodeLogger NodeLogger
}

// NewEngine creates an engine for the given graph and store.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if opts.Store == nil {
		opts.Store = NewMemorySessionStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseExecutionCallbacks{}
	}
	if opts.NodeLogger == nil {
		opts.NodeLogger = NewNullNodeLogger()
	}
	return &Engine{
		graph:      opts.Graph,
		store:      opts.Store,
		logger:     opts.Logger,
		callbacks:  opts.Callbacks,
		nodeLogger: opts.NodeLogger,
	}, nil
}

// Result is what a Start, Resume, or Inspect call hands back to the caller:
// the machine status plus a snapshot of the session state. The state is a
// copy; mutating it has no effect on the stored checkpoint.
type Result struct {
	SessionID string         `json:"session_id"`
	Status    SessionStatus  `json:"status"`
	NextNode  NodeName       `json:"next_node,omitempty"`
	State     *WorkflowState `json:"state"`
}

// Start begins a new session for the given goal. It fails with
// ErrSessionAlreadyStarted when a checkpoint already exists; resume started
// sessions instead. Execution runs until the first interrupt point or until
// the session completes.
func (e *Engine) Start(ctx context.Context, sessionID, goal string) (*Result, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if goal == "" {
		return nil, fmt.Errorf("goal is required")
	}

	switch _, err := e.store.Get(ctx, sessionID); {
	case err == nil:
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionAlreadyStarted)
	case !errors.Is(err, ErrSessionNotFound):
		return nil, fmt.Errorf("failed to check for existing session: %w", err)
	}

	now := time.Now()
	checkpoint := &Checkpoint{
		SessionID: sessionID,
		GraphName: e.graph.Name(),
		Status:    StatusRunning,
		State:     NewWorkflowState(goal),
		NextNode:  e.graph.Entry(),
		StartTime: now,
	}

	// An interrupt point on the entry node pauses the session before any
	// node runs.
	if e.graph.InterruptsBefore(checkpoint.NextNode) {
		checkpoint.Status = StatusPaused
		if err := e.commit(ctx, checkpoint); err != nil {
			return nil, err
		}
		return resultFromCheckpoint(checkpoint), nil
	}

	// Persist the session before the entry node runs, so a failure in the
	// very first node still leaves a checkpoint to resume from.
	if err := e.commit(ctx, checkpoint); err != nil {
		return nil, err
	}
	return e.run(ctx, checkpoint)
}

// Resume continues a paused (or crashed mid-run) session from its stored
// checkpoint. The optional mutation is applied to the state before the next
// node executes; this is how human feedback and approvals are injected.
func (e *Engine) Resume(ctx context.Context, sessionID string, mutation *Mutation) (*Result, error) {
	checkpoint, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if checkpoint.Terminal() {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionComplete)
	}
	if _, ok := e.graph.Node(checkpoint.NextNode); !ok {
		return nil, &InvariantError{Cause: fmt.Sprintf(
			"checkpoint for session %q names unknown node %q", sessionID, checkpoint.NextNode)}
	}
	mutation.Apply(checkpoint.State)
	return e.run(ctx, checkpoint)
}

// Inspect returns a read-only snapshot of a session. It never mutates state,
// no matter how many times it is called.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*Result, error) {
	checkpoint, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return resultFromCheckpoint(checkpoint), nil
}

// Delete discards a session's checkpoint so the session ID can be reused.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.store.Delete(ctx, sessionID)
}

// run is the step loop. It executes the checkpoint's pending node, merges
// the node's update, consults the router, and persists; it keeps stepping
// until it routes into an interrupt point, reaches a terminal route, or a
// node fails. The pending node always executes, even when it is an
// interrupt point: pauses happen before entering a node, and by the time
// run is called the caller has already supplied whatever input the pause
// was waiting for.
func (e *Engine) run(ctx context.Context, checkpoint *Checkpoint) (*Result, error) {
	logger := e.logger.With("session_id", checkpoint.SessionID)
	sessionStart := time.Now()

	e.callbacks.BeforeSession(ctx, &SessionEvent{
		SessionID: checkpoint.SessionID,
		GraphName: checkpoint.GraphName,
		Status:    checkpoint.Status,
		NextNode:  checkpoint.NextNode,
		Goal:      checkpoint.State.Goal,
		StartTime: sessionStart,
	})

	result, err := e.step(ctx, checkpoint, logger)

	endTime := time.Now()
	event := &SessionEvent{
		SessionID: checkpoint.SessionID,
		GraphName: checkpoint.GraphName,
		Status:    checkpoint.Status,
		NextNode:  checkpoint.NextNode,
		Goal:      checkpoint.State.Goal,
		StartTime: sessionStart,
		EndTime:   endTime,
		Duration:  endTime.Sub(sessionStart),
		Error:     err,
	}
	e.callbacks.AfterSession(ctx, event)

	return result, err
}

func (e *Engine) step(ctx context.Context, checkpoint *Checkpoint, logger *slog.Logger) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nodeName := checkpoint.NextNode
		node, ok := e.graph.Node(nodeName)
		if !ok {
			return nil, &InvariantError{Cause: fmt.Sprintf("node %q not found", nodeName)}
		}

		startTime := time.Now()
		e.callbacks.BeforeNode(ctx, &NodeEvent{
			SessionID: checkpoint.SessionID,
			GraphName: checkpoint.GraphName,
			Node:      nodeName,
			State:     checkpoint.State.Clone(),
			StartTime: startTime,
		})

		// Nodes see a snapshot; only the returned update is committed.
		update, nodeErr := node.Execute(ctx, checkpoint.State.Clone())
		endTime := time.Now()

		logEntry := &NodeLogEntry{
			SessionID: checkpoint.SessionID,
			Node:      nodeName,
			Wrote:     update.Fields(),
			StartTime: startTime,
			Duration:  endTime.Sub(startTime),
		}
		if nodeErr != nil {
			logEntry.Error = nodeErr.Error()
		}

		nodeEvent := &NodeEvent{
			SessionID: checkpoint.SessionID,
			GraphName: checkpoint.GraphName,
			Node:      nodeName,
			StartTime: startTime,
			EndTime:   endTime,
			Duration:  endTime.Sub(startTime),
			Error:     nodeErr,
		}

		if nodeErr != nil {
			// The checkpoint does not advance: the failed node is still
			// pending and the session stays resumable. The failure itself is
			// appended to the state's error log and committed, so the record
			// survives a later successful resume.
			failure := NewNodeFailure(nodeName, nodeErr)
			checkpoint.State.Errors = append(checkpoint.State.Errors, failure.Error())
			if commitErr := e.commit(ctx, checkpoint); commitErr != nil {
				logger.Error("failed to record node failure", "error", commitErr)
			}
			nodeEvent.State = checkpoint.State.Clone()
			e.callbacks.AfterNode(ctx, nodeEvent)
			if logErr := e.nodeLogger.LogNode(ctx, logEntry); logErr != nil {
				logger.Error("failed to log node execution", "error", logErr)
			}
			logger.Error("node failed", "node", nodeName, "error", nodeErr)
			return &Result{
				SessionID: checkpoint.SessionID,
				Status:    checkpoint.Status,
				NextNode:  nodeName,
				State:     checkpoint.State.Clone(),
			}, failure
		}

		if err := merge(checkpoint.State, update, e.graph.allowedWrites(nodeName)); err != nil {
			return nil, &InvariantError{Cause: fmt.Sprintf("node %q: %v", nodeName, err)}
		}
		nodeEvent.State = checkpoint.State.Clone()
		e.callbacks.AfterNode(ctx, nodeEvent)

		route, ok := e.graph.Route(nodeName)
		if !ok {
			return nil, &InvariantError{Cause: fmt.Sprintf("node %q has no route", nodeName)}
		}
		decision := route(checkpoint.State)

		if decision.Terminal() {
			checkpoint.Status = StatusCompleted
			checkpoint.NextNode = ""
			logEntry.NextNode = ""
		} else {
			target := decision.Target()
			if _, ok := e.graph.Node(target); !ok {
				return nil, &RoutingError{Node: nodeName, Target: target}
			}
			checkpoint.Status = StatusRunning
			if e.graph.InterruptsBefore(target) {
				checkpoint.Status = StatusPaused
			}
			checkpoint.NextNode = target
			logEntry.NextNode = target
		}

		if err := e.commit(ctx, checkpoint); err != nil {
			return nil, err
		}
		if logErr := e.nodeLogger.LogNode(ctx, logEntry); logErr != nil {
			logger.Error("failed to log node execution", "error", logErr)
		}

		logger.Debug("step committed",
			"node", nodeName,
			"next", checkpoint.NextNode,
			"status", checkpoint.Status,
			"version", checkpoint.Version)

		switch checkpoint.Status {
		case StatusCompleted:
			logger.Info("session completed", "version", checkpoint.Version)
			return resultFromCheckpoint(checkpoint), nil
		case StatusPaused:
			logger.Info("session paused", "next", checkpoint.NextNode, "version", checkpoint.Version)
			return resultFromCheckpoint(checkpoint), nil
		}
	}
}

// commit persists the checkpoint with a bumped version and a fresh
// checkpoint ID.
func (e *Engine) commit(ctx context.Context, checkpoint *Checkpoint) error {
	checkpoint.Version++
	checkpoint.ID = NewCheckpointID()
	checkpoint.UpdatedAt = time.Now()
	if err := e.store.Put(ctx, checkpoint); err != nil {
		checkpoint.Version--
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func resultFromCheckpoint(checkpoint *Checkpoint) *Result {
	return &Result{
		SessionID: checkpoint.SessionID,
		Status:    checkpoint.Status,
		NextNode:  checkpoint.NextNode,
		State:     checkpoint.State.Clone(),
	}
}
